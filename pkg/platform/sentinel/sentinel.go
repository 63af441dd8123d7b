package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors:
//   - ErrNotFound: record does not exist, or is inactive
//   - ErrConflict: a uniqueness rule rejected the write
//   - ErrUnavailable: backing store could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
