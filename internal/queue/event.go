// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// RegistrationConfirmedEvent is published when a member gains
// confirmed seats, either directly at registration time or through a
// waitlist promotion.  It carries enough information for downstream
// consumers (notification senders, analytics) without querying the
// primary database.
type RegistrationConfirmedEvent struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	MemberID       string `json:"member_id"`
	GuestCount     int    `json:"guest_count"`
	Seats          int    `json:"seats"`
	Promoted       bool   `json:"promoted"` // true when confirmed via waitlist promotion
	ConfirmedAt    string `json:"confirmed_at"`
}
