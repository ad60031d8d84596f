package domain

import "errors"

var (
	// ErrValidation marks caller-supplied data that fails validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists marks a create that collides with a live record.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict marks an update that would collide with another record.
	ErrConflict = errors.New("conflict")
	// ErrUpstream marks an unreachable or malformed content source.
	// It is fatal to a dispatch run.
	ErrUpstream = errors.New("upstream unavailable")
)
