package model

import "time"

// RegistrationStatus is the closed set of states a registration moves
// through.  It is a dedicated type rather than a free string so that
// transition handling stays exhaustive at compile time.
type RegistrationStatus string

const (
	// StatusPending is assigned while a lottery event is still
	// collecting sign-ups for the draw.
	StatusPending RegistrationStatus = "pending"
	// StatusRegistered means the member holds confirmed seats.
	StatusRegistered RegistrationStatus = "registered"
	// StatusWaitlisted means the member is queued for promotion in
	// FIFO order of RegisteredAt.
	StatusWaitlisted RegistrationStatus = "waitlisted"
	// StatusCancelled is terminal for this row; the member may
	// register again afterwards, producing a new row.
	StatusCancelled RegistrationStatus = "cancelled"
)

// Active reports whether the status still occupies or queues for
// seats.  Cancelled rows are kept for history but count for nothing.
func (s RegistrationStatus) Active() bool {
	return s == StatusPending || s == StatusRegistered || s == StatusWaitlisted
}

// Registration records one member's sign-up for one event.  A member
// has at most one active (non-cancelled) registration per event.
// Rows are never deleted; cancellation is a status change so that
// history and the FIFO ordering key survive.
//
// Fields:
//  ID           – primary key (uuid).
//  EventID      – event being registered for.
//  MemberID     – member who registered.
//  Status       – see RegistrationStatus.
//  GuestCount   – number of guests accompanying the member (>= 0).
//  RegisteredAt – immutable creation time, the waitlist FIFO key.
//  CancelledAt  – set when the row is cancelled.
//  CreatedAt    – row creation timestamp.
type Registration struct {
	ID           string             // event_registrations.id
	EventID      string             // event_registrations.event_id
	MemberID     string             // event_registrations.member_id
	Status       RegistrationStatus // event_registrations.status
	GuestCount   int                // event_registrations.guest_count
	RegisteredAt time.Time          // event_registrations.registered_at
	CancelledAt  *time.Time         // event_registrations.cancelled_at (nullable)
	CreatedAt    time.Time          // event_registrations.created_at
}

// Seats is the number of capacity units this registration occupies:
// the member plus their guests.
func (r *Registration) Seats() int { return 1 + r.GuestCount }
