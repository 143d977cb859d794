package domain

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or is no longer active.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned when an insert collides with an existing id.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrAlreadyActive is returned when the domain already has a non-finished record.
	ErrAlreadyActive = errors.New("domain already has an active record")

	// ErrInvalidRequest is returned for malformed admission requests.
	ErrInvalidRequest = errors.New("invalid admission request")
)
