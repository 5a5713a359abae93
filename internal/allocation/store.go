package allocation

import (
	"context"
	"time"

	"github.com/viksund/membership/internal/model"
)

// Store is the transactional persistence contract the engine runs
// against.  InTx must execute fn inside a single transaction and make
// the whole unit all-or-nothing: when fn returns an error the
// transaction is rolled back and nothing written inside it survives.
//
// The MySQL implementation lives in internal/repository; tests use an
// in-memory fake.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside one unit of
// work.  EventForUpdate must lock the event row for the remainder of
// the transaction so that operations against the same event serialize
// their read-modify-write of the seat counters (SELECT ... FOR UPDATE
// or an equivalent).
type Tx interface {
	// EventForUpdate loads the event and acquires an exclusive lock
	// on its row.  Returns ErrEventNotFound when no such event exists.
	EventForUpdate(ctx context.Context, eventID string) (*model.Event, error)

	// ActiveRegistration returns the member's non-cancelled
	// registration for the event, or (nil, nil) when none exists.
	ActiveRegistration(ctx context.Context, eventID, memberID string) (*model.Registration, error)

	// CreateRegistration inserts a new registration row.
	CreateRegistration(ctx context.Context, reg *model.Registration) error

	// UpdateStatus sets a registration's status.  cancelledAt is
	// written only when non-nil.
	UpdateStatus(ctx context.Context, regID string, status model.RegistrationStatus, cancelledAt *time.Time) error

	// SetGuestCount overwrites a registration's guest count.
	SetGuestCount(ctx context.Context, regID string, count int) error

	// WaitlistedInOrder returns the event's waitlisted registrations
	// ordered by RegisteredAt ascending (ties broken by id).
	WaitlistedInOrder(ctx context.Context, eventID string) ([]*model.Registration, error)

	// PendingRegistrations returns the event's pending registrations
	// in no particular order; the lottery shuffles them anyway.
	PendingRegistrations(ctx context.Context, eventID string) ([]*model.Registration, error)

	// AdjustSeatCounts adds the deltas to the event's cached seat
	// counters, flooring each at zero.
	AdjustSeatCounts(ctx context.Context, eventID string, confirmedDelta, waitlistedDelta int) error

	// CompleteLottery sets lottery_completed and overwrites both seat
	// counters with the freshly computed totals.  This is the one
	// wholesale counter reset the engine performs.
	CompleteLottery(ctx context.Context, eventID string, confirmed, waitlisted int) error
}

// Invalidator refreshes cached read views after a successful
// mutation.  It is called after commit; failures are ignored by the
// engine since staleness is a display concern, not a correctness one.
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID string)
}

// Publisher emits domain events (registration confirmed, waitlist
// promotion) after a successful commit.  Best-effort: errors are the
// publisher's problem to log.
type Publisher interface {
	RegistrationConfirmed(ctx context.Context, reg *model.Registration)
	WaitlistPromoted(ctx context.Context, reg *model.Registration)
}
