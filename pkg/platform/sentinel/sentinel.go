package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: aggregate does not exist in the store
// - ErrConflict: a uniqueness or capacity constraint blocked the write
// - ErrExpired: invite, proposal, or ban is past its expiry
// - ErrInvalidState: aggregate is in the wrong state for the transition
// - ErrUnavailable: backing service (redis, postgres) unreachable
//
// For validation of player input use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
