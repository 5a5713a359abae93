package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/viksund/membership/internal/allocation"
	"github.com/viksund/membership/internal/model"
)

// Store implements allocation.Store on top of MySQL.  Each InTx call
// is one database transaction; the event row lock taken by
// EventForUpdate serializes allocation operations per event for the
// duration of the transaction.
type Store struct {
	db     *sql.DB
	events *EventRepo
	regs   *RegistrationRepo
}

// NewStore builds the allocation store from the shared repositories.
func NewStore(db *sql.DB, events *EventRepo, regs *RegistrationRepo) *Store {
	if db == nil || events == nil || regs == nil {
		panic("nil dependency passed to NewStore")
	}
	return &Store{db: db, events: events, regs: regs}
}

// InTx runs fn inside a transaction, rolling back on error or panic
// and committing otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx allocation.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{tx: tx, store: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// storeTx adapts the repositories' ...Tx methods to allocation.Tx.
type storeTx struct {
	tx    *sql.Tx
	store *Store
}

func (t *storeTx) EventForUpdate(ctx context.Context, eventID string) (*model.Event, error) {
	ev, err := t.store.events.GetForUpdateTx(ctx, t.tx, eventID)
	if errors.Is(err, ErrEventNotFound) {
		return nil, allocation.ErrEventNotFound
	}
	return ev, err
}

func (t *storeTx) ActiveRegistration(ctx context.Context, eventID, memberID string) (*model.Registration, error) {
	return t.store.regs.ActiveByEventAndMemberTx(ctx, t.tx, eventID, memberID)
}

func (t *storeTx) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	return t.store.regs.CreateTx(ctx, t.tx, reg)
}

func (t *storeTx) UpdateStatus(ctx context.Context, regID string, status model.RegistrationStatus, cancelledAt *time.Time) error {
	return t.store.regs.UpdateStatusTx(ctx, t.tx, regID, status, cancelledAt)
}

func (t *storeTx) SetGuestCount(ctx context.Context, regID string, count int) error {
	return t.store.regs.SetGuestCountTx(ctx, t.tx, regID, count)
}

func (t *storeTx) WaitlistedInOrder(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return t.store.regs.WaitlistedInOrderTx(ctx, t.tx, eventID)
}

func (t *storeTx) PendingRegistrations(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return t.store.regs.PendingTx(ctx, t.tx, eventID)
}

func (t *storeTx) AdjustSeatCounts(ctx context.Context, eventID string, confirmedDelta, waitlistedDelta int) error {
	return t.store.events.AdjustSeatCountsTx(ctx, t.tx, eventID, confirmedDelta, waitlistedDelta)
}

func (t *storeTx) CompleteLottery(ctx context.Context, eventID string, confirmed, waitlisted int) error {
	return t.store.events.CompleteLotteryTx(ctx, t.tx, eventID, confirmed, waitlisted)
}
