package allocation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/viksund/membership/internal/model"
)

// fakeStore is an in-memory Store used by the engine tests.  InTx
// serializes callers on one mutex, mirroring the row lock the real
// store takes on the event, and restores a snapshot of the state when
// the unit of work returns an error.
type fakeStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	regs   map[string]*model.Registration

	failNext error // returned by the next InTx body before it runs
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: make(map[string]*model.Event),
		regs:   make(map[string]*model.Registration),
	}
}

func (s *fakeStore) putEvent(ev *model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = cloneEvent(ev)
}

func (s *fakeStore) putRegistration(reg *model.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg.ID] = cloneReg(reg)
}

func (s *fakeStore) event(id string) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvent(s.events[id])
}

func (s *fakeStore) registration(id string) *model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneReg(s.regs[id])
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	snapEvents := make(map[string]*model.Event, len(s.events))
	for id, ev := range s.events {
		snapEvents[id] = cloneEvent(ev)
	}
	snapRegs := make(map[string]*model.Registration, len(s.regs))
	for id, reg := range s.regs {
		snapRegs[id] = cloneReg(reg)
	}
	if err := fn(&fakeTx{store: s}); err != nil {
		s.events = snapEvents
		s.regs = snapRegs
		return err
	}
	return nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) EventForUpdate(ctx context.Context, eventID string) (*model.Event, error) {
	ev, ok := t.store.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return cloneEvent(ev), nil
}

func (t *fakeTx) ActiveRegistration(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	for _, reg := range t.store.regs {
		if reg.EventID == eventID && reg.MemberID == memberID && reg.Status != model.StatusCancelled {
			return cloneReg(reg), nil
		}
	}
	return nil, nil
}

func (t *fakeTx) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	if _, exists := t.store.regs[reg.ID]; exists {
		return fmt.Errorf("duplicate registration id %s", reg.ID)
	}
	t.store.regs[reg.ID] = cloneReg(reg)
	return nil
}

func (t *fakeTx) UpdateStatus(ctx context.Context, regID string, status model.RegistrationStatus, cancelledAt *time.Time) error {
	reg, ok := t.store.regs[regID]
	if !ok {
		return fmt.Errorf("no registration %s", regID)
	}
	reg.Status = status
	if cancelledAt != nil {
		u := *cancelledAt
		reg.CancelledAt = &u
	}
	return nil
}

func (t *fakeTx) SetGuestCount(ctx context.Context, regID string, count int) error {
	reg, ok := t.store.regs[regID]
	if !ok {
		return fmt.Errorf("no registration %s", regID)
	}
	reg.GuestCount = count
	return nil
}

func (t *fakeTx) WaitlistedInOrder(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return t.inOrder(eventID, model.StatusWaitlisted), nil
}

func (t *fakeTx) PendingRegistrations(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return t.inOrder(eventID, model.StatusPending), nil
}

func (t *fakeTx) inOrder(eventID string, status model.RegistrationStatus) []*model.Registration {
	var out []*model.Registration
	for _, reg := range t.store.regs {
		if reg.EventID == eventID && reg.Status == status {
			out = append(out, cloneReg(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *fakeTx) AdjustSeatCounts(ctx context.Context, eventID string, confirmedDelta, waitlistedDelta int) error {
	ev, ok := t.store.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	ev.ConfirmedSeats += confirmedDelta
	if ev.ConfirmedSeats < 0 {
		ev.ConfirmedSeats = 0
	}
	ev.WaitlistedSeats += waitlistedDelta
	if ev.WaitlistedSeats < 0 {
		ev.WaitlistedSeats = 0
	}
	return nil
}

func (t *fakeTx) CompleteLottery(ctx context.Context, eventID string, confirmed, waitlisted int) error {
	ev, ok := t.store.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	ev.LotteryCompleted = true
	ev.ConfirmedSeats = confirmed
	ev.WaitlistedSeats = waitlisted
	return nil
}

func cloneEvent(ev *model.Event) *model.Event {
	if ev == nil {
		return nil
	}
	c := *ev
	c.Capacity = clonePtr(ev.Capacity)
	c.RegistrationOpensAt = clonePtr(ev.RegistrationOpensAt)
	c.RegistrationDeadline = clonePtr(ev.RegistrationDeadline)
	c.CancellationDeadline = clonePtr(ev.CancellationDeadline)
	c.GuestRegistrationOpensAt = clonePtr(ev.GuestRegistrationOpensAt)
	c.LotteryDate = clonePtr(ev.LotteryDate)
	return &c
}

func cloneReg(reg *model.Registration) *model.Registration {
	if reg == nil {
		return nil
	}
	c := *reg
	c.CancelledAt = clonePtr(reg.CancelledAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// recorder captures invalidation and publish callbacks for
// assertions.
type recorder struct {
	mu          sync.Mutex
	invalidated []string
	confirmed   []string
	promoted    []string
}

func (r *recorder) InvalidateEvent(ctx context.Context, eventID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, eventID)
}

func (r *recorder) RegistrationConfirmed(ctx context.Context, reg *model.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, reg.MemberID)
}

func (r *recorder) WaitlistPromoted(ctx context.Context, reg *model.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promoted = append(r.promoted, reg.MemberID)
}
