package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into explicit outcomes
// without string matching.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the registry or store
// - ErrConflict: a concurrent writer got there first
// - ErrLocked: record is under an operator lock and must not be written
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: external source or store temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrLocked       = errors.New("locked")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
