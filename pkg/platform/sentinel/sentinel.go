package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger and profile stores return
// these (optionally wrapped) so services can translate them into coded domain
// errors without depending on store internals.
//
// These represent factual states about stored records, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a concurrent writer won the race on the same record
// - ErrUnavailable: backing store temporarily unreachable, caller may retry
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
