// Package repository defines the SQL data access layer.  This file holds
// sentinel error values reused across repositories so that handlers can
// map failure scenarios onto precise HTTP responses: ErrConflict becomes a
// 409, Err*NotFound a 404, and so on.
package repository

import "errors"

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as confirming a booking whose date range now
// overlaps another confirmed booking, or deleting a vehicle with open
// bookings.
var ErrConflict = errors.New("conflict")

// ErrUsernameExists and ErrEmailExists report which field collided at
// sign-up.  Handlers surface the colliding field by name.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// Not-found sentinels per entity.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrBookingNotFound = errors.New("booking not found")
)

// ErrInvalidTransition is returned when an admin requests a booking status
// change that the transition map does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrDuplicateKey is returned when an insert hits a unique index.  The
// booking repository uses it to detect idempotent resubmission.
var ErrDuplicateKey = errors.New("duplicate key")
