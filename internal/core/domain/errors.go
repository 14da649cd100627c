package domain

import "errors"

var (
	// ErrNoRegion is returned when a run is requested before any region exists.
	ErrNoRegion = errors.New("no region selected")
	// ErrRunInFlight is returned when a run is requested while another is running.
	ErrRunInFlight = errors.New("optimization already running")
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidPoint is returned for non-finite or out-of-range coordinates.
	ErrInvalidPoint = errors.New("invalid coordinate")
)

// ErrRunNotFound is returned when a run ID is not in the history store.
var ErrRunNotFound = errors.New("run not found")
