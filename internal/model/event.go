package model

import "time"

// AllocationMethod decides how a finite-capacity event admits
// registrations: first come first served, or a one-time randomized
// lottery over everyone who signed up before the draw.
type AllocationMethod string

const (
	AllocationFirstCome AllocationMethod = "first_come"
	AllocationLottery   AllocationMethod = "lottery"
)

// EventStatus tracks the lifecycle of an event as managed by admins.
// Only published events are visible to members and accept
// registrations.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// Event represents a scheduled association event with finite or
// unlimited capacity.  It carries the registration window, the
// cancellation policy, the guest policy and the lottery state.
//
// ConfirmedSeats and WaitlistedSeats are denormalized caches of the
// seat totals implied by the registrations table: at all times
// ConfirmedSeats equals the sum of 1+GuestCount over registered (and
// pre-lottery pending) rows, and WaitlistedSeats the same sum over
// waitlisted rows.  Only the allocation engine writes them.
//
// Fields:
//  ID                      – primary key (uuid).
//  Title                   – display title.
//  Date                    – when the event takes place.
//  Capacity                – total seats; nil means unlimited.
//  AllocationMethod        – first_come or lottery.
//  RegistrationOpensAt     – registrations rejected before this; nil = open.
//  RegistrationDeadline    – registrations rejected after this; nil = open.
//  CancellationAllowed     – whether members may cancel at all.
//  CancellationDeadline    – cancellations rejected after this; nil = open.
//  GuestAllowed            – whether members may bring guests.
//  MaxGuestsPerMember      – upper bound on guests per registration.
//  GuestRegistrationOpensAt – guests rejected before this; nil = open.
//  LotteryDate             – informational draw date for lottery events.
//  LotteryCompleted        – one-way flag; the lottery runs at most once.
//  ConfirmedSeats          – cached confirmed seat total.
//  WaitlistedSeats         – cached waitlisted seat total.
//  Status                  – lifecycle state (draft, published, ...).
//  CreatedAt               – creation timestamp.
//  UpdatedAt               – last update timestamp.
type Event struct {
	ID                       string           // events.id
	Title                    string           // events.title
	Date                     time.Time        // events.date
	Capacity                 *int             // events.capacity (nullable)
	AllocationMethod         AllocationMethod // events.allocation_method
	RegistrationOpensAt      *time.Time       // events.registration_opens_at (nullable)
	RegistrationDeadline     *time.Time       // events.registration_deadline (nullable)
	CancellationAllowed      bool             // events.cancellation_allowed
	CancellationDeadline     *time.Time       // events.cancellation_deadline (nullable)
	GuestAllowed             bool             // events.guest_allowed
	MaxGuestsPerMember       int              // events.max_guests_per_member
	GuestRegistrationOpensAt *time.Time       // events.guest_registration_opens_at (nullable)
	LotteryDate              *time.Time       // events.lottery_date (nullable)
	LotteryCompleted         bool             // events.lottery_completed
	ConfirmedSeats           int              // events.confirmed_seats
	WaitlistedSeats          int              // events.waitlisted_seats
	Status                   EventStatus      // events.status
	CreatedAt                time.Time        // events.created_at
	UpdatedAt                time.Time        // events.updated_at
}

// LotteryPending reports whether the event is still collecting pending
// registrations for a future draw.
func (e *Event) LotteryPending() bool {
	return e.AllocationMethod == AllocationLottery && !e.LotteryCompleted
}

// Full reports whether confirmed seats have reached capacity.  An
// event without a capacity is never full.
func (e *Event) Full() bool {
	return e.Capacity != nil && e.ConfirmedSeats >= *e.Capacity
}

// SeatsFit reports whether n additional confirmed seats fit within
// capacity.  Unlimited events always fit.
func (e *Event) SeatsFit(n int) bool {
	return e.Capacity == nil || e.ConfirmedSeats+n <= *e.Capacity
}
