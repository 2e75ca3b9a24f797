package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors:
//   - ErrNotFound: row does not exist or is hidden by row-level security
//   - ErrConflict: a unique constraint would be violated
//   - ErrInvalidState: row exists but is in the wrong state (e.g. submitted)
//   - ErrUnavailable: database or external system is temporarily unavailable
//   - ErrAlreadyUsed: an identifier (BORO ID, BCGHG ID) was already issued
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrAlreadyUsed  = errors.New("already used")
)
