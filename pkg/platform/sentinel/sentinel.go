package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the store or on the ledger
//   - ErrConflict: a concurrent writer changed the record first
//   - ErrInvalidState: record is in the wrong state for the requested operation
//   - ErrUnavailable: backing service cannot be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
