package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/viksund/membership/internal/model"
)

const registrationColumns = `id, event_id, member_id, status, guest_count,
       registered_at, cancelled_at, created_at`

// RegistrationRepo provides data access to the event_registrations
// table.  Rows are soft-deleted only: cancellation flips the status
// and stamps cancelled_at, preserving history and the FIFO ordering
// key.  Status transitions go through the allocation engine's unit
// of work; the plain read methods serve listing endpoints.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the
// given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg         model.Registration
		status      string
		cancelledAt sql.NullTime
	)
	err := row.Scan(&reg.ID, &reg.EventID, &reg.MemberID, &status, &reg.GuestCount,
		&reg.RegisteredAt, &cancelledAt, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatus(status)
	reg.CancelledAt = nullTimePtr(cancelledAt)
	return &reg, nil
}

// ActiveByEventAndMemberTx returns the member's non-cancelled
// registration for the event within the transaction, or (nil, nil)
// when none exists.  At most one such row can exist at a time.
func (r *RegistrationRepo) ActiveByEventAndMemberTx(ctx context.Context, tx *sql.Tx, eventID, memberID string) (*model.Registration, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM event_registrations
		 WHERE event_id = ? AND member_id = ? AND status != 'cancelled'
		 LIMIT 1`,
		eventID, memberID)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return reg, err
}

// CreateTx inserts a new registration row within the transaction.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_registrations
		 (id, event_id, member_id, status, guest_count, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.EventID, reg.MemberID, string(reg.Status), reg.GuestCount,
		reg.RegisteredAt.UTC())
	return err
}

// UpdateStatusTx sets a registration's status within the
// transaction.  cancelled_at is written only when provided.
func (r *RegistrationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, regID string, status model.RegistrationStatus, cancelledAt *time.Time) error {
	if cancelledAt != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE event_registrations SET status = ?, cancelled_at = ? WHERE id = ?`,
			string(status), cancelledAt.UTC(), regID)
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE event_registrations SET status = ? WHERE id = ?`,
		string(status), regID)
	return err
}

// SetGuestCountTx overwrites a registration's guest count within the
// transaction.
func (r *RegistrationRepo) SetGuestCountTx(ctx context.Context, tx *sql.Tx, regID string, count int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event_registrations SET guest_count = ? WHERE id = ?`,
		count, regID)
	return err
}

// WaitlistedInOrderTx returns the event's waitlisted registrations in
// promotion order: registered_at ascending, id as tiebreaker.
func (r *RegistrationRepo) WaitlistedInOrderTx(ctx context.Context, tx *sql.Tx, eventID string) ([]*model.Registration, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM event_registrations
		 WHERE event_id = ? AND status = 'waitlisted'
		 ORDER BY registered_at ASC, id ASC`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// PendingTx returns the event's pending registrations within the
// transaction.
func (r *RegistrationRepo) PendingTx(ctx context.Context, tx *sql.Tx, eventID string) ([]*model.Registration, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM event_registrations
		 WHERE event_id = ? AND status = 'pending'
		 ORDER BY registered_at ASC, id ASC`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func collectRegistrations(rows *sql.Rows) ([]*model.Registration, error) {
	regs := make([]*model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

// MemberRegistration is a registration joined with its event for the
// member-facing listing.
type MemberRegistration struct {
	RegistrationID string  `json:"registration_id"`
	EventID        string  `json:"event_id"`
	EventTitle     string  `json:"event_title"`
	EventDate      string  `json:"event_date"`
	Status         string  `json:"status"`
	GuestCount     int     `json:"guest_count"`
	RegisteredAt   string  `json:"registered_at"`
	CancelledAt    *string `json:"cancelled_at,omitempty"`
}

// ListByMember returns all of a member's registrations (including
// cancelled ones) with event details, newest first.
func (r *RegistrationRepo) ListByMember(ctx context.Context, memberID string) ([]MemberRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reg.id, reg.event_id, e.title, e.date,
		        reg.status, reg.guest_count, reg.registered_at, reg.cancelled_at
		 FROM event_registrations reg
		 JOIN events e ON e.id = reg.event_id
		 WHERE reg.member_id = ?
		 ORDER BY reg.registered_at DESC`,
		memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]MemberRegistration, 0)
	for rows.Next() {
		var (
			item        MemberRegistration
			date        time.Time
			registered  time.Time
			cancelledAt sql.NullTime
		)
		if err := rows.Scan(&item.RegistrationID, &item.EventID, &item.EventTitle, &date,
			&item.Status, &item.GuestCount, &registered, &cancelledAt); err != nil {
			return nil, err
		}
		item.EventDate = date.UTC().Format(time.RFC3339)
		item.RegisteredAt = registered.UTC().Format(time.RFC3339)
		if cancelledAt.Valid {
			iso := cancelledAt.Time.UTC().Format(time.RFC3339)
			item.CancelledAt = &iso
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// EventRegistration is a registration joined with member details for
// the admin listing and export feed.
type EventRegistration struct {
	RegistrationID string  `json:"registration_id"`
	MemberID       string  `json:"member_id"`
	MemberName     string  `json:"member_name"`
	MemberEmail    string  `json:"member_email"`
	Status         string  `json:"status"`
	GuestCount     int     `json:"guest_count"`
	Seats          int     `json:"seats"`
	RegisteredAt   string  `json:"registered_at"`
	CancelledAt    *string `json:"cancelled_at,omitempty"`
}

// ListByEvent returns every registration for an event with member
// details, in FIFO order.  Cancelled rows are included so admins see
// the full history.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]EventRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reg.id, reg.member_id, m.name, m.email,
		        reg.status, reg.guest_count, reg.registered_at, reg.cancelled_at
		 FROM event_registrations reg
		 JOIN members m ON m.id = reg.member_id
		 WHERE reg.event_id = ?
		 ORDER BY reg.registered_at ASC, reg.id ASC`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]EventRegistration, 0)
	for rows.Next() {
		var (
			item        EventRegistration
			registered  time.Time
			cancelledAt sql.NullTime
		)
		if err := rows.Scan(&item.RegistrationID, &item.MemberID, &item.MemberName, &item.MemberEmail,
			&item.Status, &item.GuestCount, &registered, &cancelledAt); err != nil {
			return nil, err
		}
		item.Seats = 1 + item.GuestCount
		item.RegisteredAt = registered.UTC().Format(time.RFC3339)
		if cancelledAt.Valid {
			iso := cancelledAt.Time.UTC().Format(time.RFC3339)
			item.CancelledAt = &iso
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
