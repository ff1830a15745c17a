package database

import "errors"

// Store errors. Callers distinguish them with errors.Is.
var (
	// ErrNotFound is returned when no analysis exists for an address.
	ErrNotFound = errors.New("analysis not found")

	// ErrDuplicateAddress is returned by Insert when an analysis already
	// exists for the address. It is distinct from ErrNotFound so callers can
	// fall back to an update without guessing.
	ErrDuplicateAddress = errors.New("analysis already exists for address")
)
