package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrUserNotFound is returned when no internal user exists for a subject.
	ErrUserNotFound = errors.New("user not found")
)
