package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/viksund/membership/internal/model"
)

// eventColumns is the column list shared by every event query so
// that scanEvent stays in sync with a single definition.
const eventColumns = `id, title, date, capacity, allocation_method,
       registration_opens_at, registration_deadline,
       cancellation_allowed, cancellation_deadline,
       guest_allowed, max_guests_per_member, guest_registration_opens_at,
       lottery_date, lottery_completed,
       confirmed_seats, waitlisted_seats, status, created_at, updated_at`

// EventRepo provides data access to the events table.  Seat counter
// writes live here but are only ever invoked through the allocation
// engine's unit of work; nothing else mutates confirmed_seats or
// waitlisted_seats.  All timestamps are stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions.
func (r *EventRepo) DB() *sql.DB { return r.db }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent reads one row in eventColumns order into a model.Event.
func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		ev            model.Event
		capacity      sql.NullInt64
		opensAt       sql.NullTime
		deadline      sql.NullTime
		cancelBy      sql.NullTime
		guestOpensAt  sql.NullTime
		lotteryDate   sql.NullTime
		method        string
		status        string
	)
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Date, &capacity, &method,
		&opensAt, &deadline,
		&ev.CancellationAllowed, &cancelBy,
		&ev.GuestAllowed, &ev.MaxGuestsPerMember, &guestOpensAt,
		&lotteryDate, &ev.LotteryCompleted,
		&ev.ConfirmedSeats, &ev.WaitlistedSeats, &status, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.AllocationMethod = model.AllocationMethod(method)
	ev.Status = model.EventStatus(status)
	if capacity.Valid {
		c := int(capacity.Int64)
		ev.Capacity = &c
	}
	ev.RegistrationOpensAt = nullTimePtr(opensAt)
	ev.RegistrationDeadline = nullTimePtr(deadline)
	ev.CancellationDeadline = nullTimePtr(cancelBy)
	ev.GuestRegistrationOpensAt = nullTimePtr(guestOpensAt)
	ev.LotteryDate = nullTimePtr(lotteryDate)
	return &ev, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// GetForUpdateTx loads an event inside the given transaction and
// locks its row until commit or rollback.  Concurrent allocation
// operations against the same event block here, which is what makes
// the seat counter read-modify-write safe.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// AdjustSeatCountsTx applies deltas to the cached seat counters,
// flooring each at zero.
func (r *EventRepo) AdjustSeatCountsTx(ctx context.Context, tx *sql.Tx, id string, confirmedDelta, waitlistedDelta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE events
		 SET confirmed_seats  = GREATEST(CAST(confirmed_seats AS SIGNED) + ?, 0),
		     waitlisted_seats = GREATEST(CAST(waitlisted_seats AS SIGNED) + ?, 0),
		     updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		confirmedDelta, waitlistedDelta, id)
	return err
}

// CompleteLotteryTx marks the lottery done and overwrites both seat
// counters with the totals computed by the draw.
func (r *EventRepo) CompleteLotteryTx(ctx context.Context, tx *sql.Tx, id string, confirmed, waitlisted int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE events
		 SET lottery_completed = TRUE,
		     confirmed_seats = ?, waitlisted_seats = ?,
		     updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		confirmed, waitlisted, id)
	return err
}

// ListPublished returns published events ordered by date ascending.
func (r *EventRepo) ListPublished(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE status = 'published' ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListAll returns every event regardless of status, newest first.
// Used by admin views.
func (r *EventRepo) ListAll(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*model.Event, error) {
	events := make([]*model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Create inserts a new event.  Seat counters start at zero and the
// lottery flag unset regardless of the input.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events
		 (id, title, date, capacity, allocation_method,
		  registration_opens_at, registration_deadline,
		  cancellation_allowed, cancellation_deadline,
		  guest_allowed, max_guests_per_member, guest_registration_opens_at,
		  lottery_date, lottery_completed, confirmed_seats, waitlisted_seats, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, 0, 0, ?)`,
		ev.ID, ev.Title, ev.Date.UTC(), intPtrArg(ev.Capacity), string(ev.AllocationMethod),
		timePtrArg(ev.RegistrationOpensAt), timePtrArg(ev.RegistrationDeadline),
		ev.CancellationAllowed, timePtrArg(ev.CancellationDeadline),
		ev.GuestAllowed, ev.MaxGuestsPerMember, timePtrArg(ev.GuestRegistrationOpensAt),
		timePtrArg(ev.LotteryDate), string(ev.Status))
	return err
}

// Update rewrites an event's policy fields.  Counters and the
// lottery flag are deliberately untouched: only the allocation
// engine owns those.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events
		 SET title = ?, date = ?, capacity = ?, allocation_method = ?,
		     registration_opens_at = ?, registration_deadline = ?,
		     cancellation_allowed = ?, cancellation_deadline = ?,
		     guest_allowed = ?, max_guests_per_member = ?, guest_registration_opens_at = ?,
		     lottery_date = ?, status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		ev.Title, ev.Date.UTC(), intPtrArg(ev.Capacity), string(ev.AllocationMethod),
		timePtrArg(ev.RegistrationOpensAt), timePtrArg(ev.RegistrationDeadline),
		ev.CancellationAllowed, timePtrArg(ev.CancellationDeadline),
		ev.GuestAllowed, ev.MaxGuestsPerMember, timePtrArg(ev.GuestRegistrationOpensAt),
		timePtrArg(ev.LotteryDate), string(ev.Status), ev.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func intPtrArg(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func timePtrArg(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return p.UTC()
}
