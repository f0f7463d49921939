// Package models holds the ledger's record types and their invariants.
// Stores persist these; the service enforces the transition rules through the
// Can*/Apply* methods so every store implementation shares one rulebook.
package models

import (
	"strings"
	"time"

	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

// Property is a registered land record. id is allocated by the ledger and
// never reused; owner is the only field a transfer may change; isVerified is
// the only field verification may change. Everything else is immutable after
// registration.
type Property struct {
	ID             domain.PropertyID
	PropertyNumber string
	Owner          domain.Address
	Location       string
	DocumentRef    string
	IsVerified     bool
	RegisteredAt   time.Time
}

// Registration is the caller-supplied input to registerProperty, already
// trimmed and validated.
type Registration struct {
	PropertyNumber string
	Location       string
	DocumentRef    string
}

// NewRegistration trims and validates registration input. All three fields
// are required; the ledger does not interpret any of them.
func NewRegistration(propertyNumber, location, documentRef string) (Registration, error) {
	reg := Registration{
		PropertyNumber: strings.TrimSpace(propertyNumber),
		Location:       strings.TrimSpace(location),
		DocumentRef:    strings.TrimSpace(documentRef),
	}
	switch {
	case reg.PropertyNumber == "":
		return Registration{}, dErrors.New(dErrors.CodeInvalidInput, "property number is required")
	case reg.Location == "":
		return Registration{}, dErrors.New(dErrors.CodeInvalidInput, "location is required")
	case reg.DocumentRef == "":
		return Registration{}, dErrors.New(dErrors.CodeInvalidInput, "document reference is required")
	}
	return reg, nil
}

// CanTransfer checks the transfer preconditions against the current record.
// Order matters: verification is checked before ownership so an unverified
// property reports not_verified even to a non-owner probing it.
func (p *Property) CanTransfer(caller, newOwner domain.Address) error {
	if !p.IsVerified {
		return dErrors.New(dErrors.CodeNotVerified, "property is not verified for transfer")
	}
	if !p.Owner.Equal(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the current owner")
	}
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidTarget, "transfer target must be a non-zero address")
	}
	if newOwner.Equal(caller) {
		return dErrors.New(dErrors.CodeInvalidTarget, "cannot transfer property to yourself")
	}
	return nil
}

// ApplyTransfer mutates the owner. Callers must have checked CanTransfer
// inside the same critical section.
func (p *Property) ApplyTransfer(newOwner domain.Address) {
	p.Owner = newOwner
}

// ApplyVerification marks the property verified. Idempotent.
func (p *Property) ApplyVerification() {
	p.IsVerified = true
}

// TransactionRecord is one entry of the append-only transfer log. Position is
// the record's index in the global log; append order is chronological order
// and is part of the observable contract.
type TransactionRecord struct {
	Position   int64
	PropertyID domain.PropertyID
	Sender     domain.Address
	Receiver   domain.Address
	TxRef      domain.TxRef
	CreatedAt  time.Time
}
