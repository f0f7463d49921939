// Package audit captures the off-ledger audit trail: who did what, from
// where. The transfer log is the ledger's own source of truth; audit events
// exist for operators and compliance reviewers and never feed back into
// ledger decisions.
package audit

import (
	"context"
	"time"

	"landledger/pkg/domain"
)

// Action names an auditable event.
type Action string

const (
	ActionPropertyRegistered   Action = "property_registered"
	ActionPropertyVerified     Action = "property_verified"
	ActionOwnershipTransferred Action = "ownership_transferred"
	ActionTransferDenied       Action = "transfer_denied"
	ActionProfileSubmitted     Action = "profile_submitted"
	ActionDocumentPinned       Action = "document_pinned"
)

// Event is emitted from domain logic. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	Action     Action
	Actor      domain.Address    // caller performing the action
	Subject    domain.Address    // counterparty, if any (transfer receiver)
	PropertyID domain.PropertyID // zero when the event is not about a property
	TxRef      string
	Reason     string // denial reason or free-form detail
	RequestID  string
	ClientIP   string
	UserAgent  string
}

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByProperty(ctx context.Context, id domain.PropertyID) ([]Event, error)
}
