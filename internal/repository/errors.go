// Package repository defines error types that are reused across
// multiple repositories.  These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios without string matching.
package repository

import "errors"

// ErrEventNotFound is returned when an event lookup matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrMemberNotFound is returned when a member lookup matches no row.
var ErrMemberNotFound = errors.New("member not found")

// ErrEmailExists is returned when a signup collides with an existing
// member email.  Handlers should translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")
