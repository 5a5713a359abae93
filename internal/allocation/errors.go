// Package allocation implements the seat allocation engine for
// events: registration, cancellation, guest management, waitlist
// promotion and the one-time lottery draw.  It is the sole writer of
// registration status transitions and of the event seat counters.
//
// Every operation runs as one atomic unit of work through the Store
// contract; validation failures are reported as the sentinel errors
// below so that handlers can map each condition to a distinct HTTP
// response without string matching.
package allocation

import (
	"errors"
	"fmt"
)

// Sentinel validation errors.  These represent expected, user-caused
// conditions; they are returned, never wrapped in panics or used for
// control flow beyond errors.Is checks at the handler layer.
var (
	ErrUnauthenticated            = errors.New("not authenticated")
	ErrEventNotFound              = errors.New("event not found")
	ErrRegistrationNotOpenYet     = errors.New("registration not open yet")
	ErrRegistrationClosed         = errors.New("registration closed")
	ErrAlreadyRegistered          = errors.New("already registered")
	ErrNoRegistrationFound        = errors.New("no registration found")
	ErrCancellationNotAllowed     = errors.New("cancellation not allowed")
	ErrCancellationDeadlinePassed = errors.New("cancellation deadline passed")
	ErrGuestsNotAllowed           = errors.New("guests not allowed")
	ErrGuestRegistrationNotOpenYet = errors.New("guest registration not open yet")
	ErrGuestLimitReached          = errors.New("guest limit reached")
	ErrNoGuestsToRemove           = errors.New("no guests to remove")
	ErrEventFull                  = errors.New("event full")
	ErrLotteryAlreadyCompleted    = errors.New("lottery already completed")
	ErrNotALotteryEvent           = errors.New("not a lottery event")
	ErrNotAuthorized              = errors.New("not authorized")
)

// StorageError wraps a persistence-layer failure (transaction
// conflict, timeout, connectivity).  The engine guarantees atomicity,
// so callers may retry the whole operation at their discretion; no
// partial state is left behind.
type StorageError struct {
	Op  string // engine operation that failed, e.g. "register"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("allocation: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storeErr wraps err as a StorageError unless it is already one of
// the sentinel validation errors, which pass through untouched.
func storeErr(op string, err error) error {
	for _, sentinel := range []error{
		ErrUnauthenticated, ErrEventNotFound, ErrRegistrationNotOpenYet,
		ErrRegistrationClosed, ErrAlreadyRegistered, ErrNoRegistrationFound,
		ErrCancellationNotAllowed, ErrCancellationDeadlinePassed,
		ErrGuestsNotAllowed, ErrGuestRegistrationNotOpenYet,
		ErrGuestLimitReached, ErrNoGuestsToRemove, ErrEventFull, ErrLotteryAlreadyCompleted,
		ErrNotALotteryEvent, ErrNotAuthorized,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}
