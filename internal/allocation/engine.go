package allocation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viksund/membership/internal/model"
)

// Engine performs all registration state transitions and seat
// accounting for events.  Each public method is one atomic unit of
// work: event and registration rows are read under lock, validated,
// written and committed together, so concurrent calls against the
// same event serialize on the event row and the cached seat counters
// can never drift from the registrations they summarize.
type Engine struct {
	store       Store
	clock       func() time.Time
	newID       func() string
	invalidator Invalidator
	publisher   Publisher

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.  Tests use a fixed clock to
// exercise registration windows deterministically.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRand overrides the random source used by the lottery draw.  A
// seeded source makes draw outcomes reproducible in tests.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithIDGenerator overrides registration id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithInvalidator sets the post-commit cache invalidation hook.
func WithInvalidator(inv Invalidator) Option {
	return func(e *Engine) { e.invalidator = inv }
}

// WithPublisher sets the post-commit domain event publisher.
func WithPublisher(pub Publisher) Option {
	return func(e *Engine) { e.publisher = pub }
}

// NewEngine constructs an Engine bound to the given store.
func NewEngine(store Store, opts ...Option) *Engine {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	e := &Engine{
		store: store,
		clock: func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register creates a registration for the member on the event.  The
// status is decided in priority order: a lottery event that has not
// drawn yet yields pending, a full event yields waitlisted, otherwise
// registered.  Pending registrations reserve a presumptive confirmed
// seat so post-lottery accounting stays simple.
func (e *Engine) Register(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	if memberID == "" {
		return nil, ErrUnauthenticated
	}
	var created *model.Registration
	err := e.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := registrationOpen(ev, e.clock()); err != nil {
			return err
		}
		existing, err := tx.ActiveRegistration(ctx, eventID, memberID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}

		status := model.StatusRegistered
		switch {
		case ev.LotteryPending():
			status = model.StatusPending
		case ev.Full():
			status = model.StatusWaitlisted
		}

		reg := &model.Registration{
			ID:           e.newID(),
			EventID:      eventID,
			MemberID:     memberID,
			Status:       status,
			GuestCount:   0,
			RegisteredAt: e.clock(),
		}
		if err := tx.CreateRegistration(ctx, reg); err != nil {
			return err
		}
		if status == model.StatusWaitlisted {
			err = tx.AdjustSeatCounts(ctx, eventID, 0, 1)
		} else {
			err = tx.AdjustSeatCounts(ctx, eventID, 1, 0)
		}
		if err != nil {
			return err
		}
		created = reg
		return nil
	})
	if err != nil {
		return nil, storeErr("register", err)
	}
	e.invalidate(ctx, eventID)
	if created.Status == model.StatusRegistered && e.publisher != nil {
		e.publisher.RegistrationConfirmed(ctx, created)
	}
	return created, nil
}

// Cancel marks the member's active registration cancelled, releases
// its seats and promotes waitlisted registrations into the freed
// space.  Promotion happens inside the same transaction, so there is
// no window in which freed seats are visible to a fresh Register call
// before the waitlist has been offered them.
func (e *Engine) Cancel(ctx context.Context, eventID, memberID string) error {
	if memberID == "" {
		return ErrUnauthenticated
	}
	var promoted []*model.Registration
	err := e.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		reg, err := tx.ActiveRegistration(ctx, eventID, memberID)
		if err != nil {
			return err
		}
		if reg == nil {
			return ErrNoRegistrationFound
		}
		now := e.clock()
		if !ev.CancellationAllowed {
			return ErrCancellationNotAllowed
		}
		if ev.CancellationDeadline != nil && now.After(*ev.CancellationDeadline) {
			return ErrCancellationDeadlinePassed
		}

		freed := reg.Seats()
		if err := tx.UpdateStatus(ctx, reg.ID, model.StatusCancelled, &now); err != nil {
			return err
		}
		switch reg.Status {
		case model.StatusRegistered, model.StatusPending:
			if err := tx.AdjustSeatCounts(ctx, eventID, -freed, 0); err != nil {
				return err
			}
			promoted, err = e.promoteWaitlist(ctx, tx, eventID, freed)
			if err != nil {
				return err
			}
		case model.StatusWaitlisted:
			if err := tx.AdjustSeatCounts(ctx, eventID, 0, -freed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("cancel", err)
	}
	e.invalidate(ctx, eventID)
	e.publishPromotions(ctx, promoted)
	return nil
}

// AddGuest adds one guest seat to the member's registration.  For a
// registered member on a finite-capacity event the extra seat is a
// hard admission-control boundary: when the event is full the guest
// is rejected outright rather than silently waitlisted.
func (e *Engine) AddGuest(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	if memberID == "" {
		return nil, ErrUnauthenticated
	}
	var updated *model.Registration
	err := e.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		reg, err := tx.ActiveRegistration(ctx, eventID, memberID)
		if err != nil {
			return err
		}
		if reg == nil {
			return ErrNoRegistrationFound
		}
		now := e.clock()
		if !ev.GuestAllowed {
			return ErrGuestsNotAllowed
		}
		// Guests wait for the draw: the lottery assigns one seat per
		// pending registration, so extra seats open only afterwards.
		if ev.LotteryPending() || reg.Status == model.StatusPending {
			return ErrGuestRegistrationNotOpenYet
		}
		if ev.GuestRegistrationOpensAt != nil && now.Before(*ev.GuestRegistrationOpensAt) {
			return ErrGuestRegistrationNotOpenYet
		}
		if ev.RegistrationDeadline != nil && now.After(*ev.RegistrationDeadline) {
			return ErrRegistrationClosed
		}
		if reg.GuestCount >= ev.MaxGuestsPerMember {
			return ErrGuestLimitReached
		}

		switch reg.Status {
		case model.StatusRegistered:
			if !ev.SeatsFit(1) {
				return ErrEventFull
			}
			if err := tx.SetGuestCount(ctx, reg.ID, reg.GuestCount+1); err != nil {
				return err
			}
			if err := tx.AdjustSeatCounts(ctx, eventID, 1, 0); err != nil {
				return err
			}
		case model.StatusWaitlisted:
			if err := tx.SetGuestCount(ctx, reg.ID, reg.GuestCount+1); err != nil {
				return err
			}
			if err := tx.AdjustSeatCounts(ctx, eventID, 0, 1); err != nil {
				return err
			}
		}
		reg.GuestCount++
		updated = reg
		return nil
	})
	if err != nil {
		return nil, storeErr("add guest", err)
	}
	e.invalidate(ctx, eventID)
	return updated, nil
}

// RemoveGuest drops one guest seat from the member's registration.
// When the registration is confirmed, the freed seat may admit a
// waitlisted party, so promotion runs in the same transaction.
func (e *Engine) RemoveGuest(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	if memberID == "" {
		return nil, ErrUnauthenticated
	}
	var (
		updated  *model.Registration
		promoted []*model.Registration
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.EventForUpdate(ctx, eventID); err != nil {
			return err
		}
		reg, err := tx.ActiveRegistration(ctx, eventID, memberID)
		if err != nil {
			return err
		}
		if reg == nil {
			return ErrNoRegistrationFound
		}
		if reg.GuestCount <= 0 {
			return ErrNoGuestsToRemove
		}
		if err := tx.SetGuestCount(ctx, reg.ID, reg.GuestCount-1); err != nil {
			return err
		}
		if reg.Status == model.StatusWaitlisted {
			if err := tx.AdjustSeatCounts(ctx, eventID, 0, -1); err != nil {
				return err
			}
		} else {
			if err := tx.AdjustSeatCounts(ctx, eventID, -1, 0); err != nil {
				return err
			}
			if reg.Status == model.StatusRegistered {
				promoted, err = e.promoteWaitlist(ctx, tx, eventID, 1)
				if err != nil {
					return err
				}
			}
		}
		reg.GuestCount--
		updated = reg
		return nil
	})
	if err != nil {
		return nil, storeErr("remove guest", err)
	}
	e.invalidate(ctx, eventID)
	e.publishPromotions(ctx, promoted)
	return updated, nil
}

// promoteWaitlist admits waitlisted registrations into available
// freed seats in strict FIFO order of RegisteredAt.  The walk stops
// at the first party that does not fit the remaining seats: fairness
// beats packing efficiency, so a later smaller party is never moved
// ahead of an earlier larger one.
func (e *Engine) promoteWaitlist(ctx context.Context, tx Tx, eventID string, available int) ([]*model.Registration, error) {
	if available <= 0 {
		return nil, nil
	}
	queue, err := tx.WaitlistedInOrder(ctx, eventID)
	if err != nil {
		return nil, err
	}
	remaining := available
	var promoted []*model.Registration
	for _, w := range queue {
		need := w.Seats()
		if need > remaining {
			break
		}
		if err := tx.UpdateStatus(ctx, w.ID, model.StatusRegistered, nil); err != nil {
			return nil, err
		}
		if err := tx.AdjustSeatCounts(ctx, eventID, need, -need); err != nil {
			return nil, err
		}
		remaining -= need
		w.Status = model.StatusRegistered
		promoted = append(promoted, w)
		if remaining == 0 {
			break
		}
	}
	return promoted, nil
}

func (e *Engine) invalidate(ctx context.Context, eventID string) {
	if e.invalidator != nil {
		e.invalidator.InvalidateEvent(ctx, eventID)
	}
}

func (e *Engine) publishPromotions(ctx context.Context, promoted []*model.Registration) {
	if e.publisher == nil {
		return
	}
	for _, reg := range promoted {
		e.publisher.WaitlistPromoted(ctx, reg)
	}
}

// registrationOpen validates the registration window and the event's
// lifecycle state at time now.
func registrationOpen(ev *model.Event, now time.Time) error {
	switch ev.Status {
	case model.EventPublished:
	case model.EventDraft:
		// Drafts are invisible to members.
		return ErrEventNotFound
	default:
		return ErrRegistrationClosed
	}
	if ev.RegistrationOpensAt != nil && now.Before(*ev.RegistrationOpensAt) {
		return ErrRegistrationNotOpenYet
	}
	if ev.RegistrationDeadline != nil && now.After(*ev.RegistrationDeadline) {
		return ErrRegistrationClosed
	}
	return nil
}
