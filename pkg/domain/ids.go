package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "landledger/pkg/domain-errors"
)

// PropertyID identifies a property record. IDs are allocated by the ledger
// starting from 1 and are never reused; 0 is the invalid zero value.
type PropertyID int64

// ParsePropertyID parses a positive decimal property ID.
func ParsePropertyID(s string) (PropertyID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "property id must be a positive integer")
	}
	return PropertyID(n), nil
}

// IsValid reports whether the ID could have been allocated by the ledger.
func (p PropertyID) IsValid() bool { return p >= 1 }

func (p PropertyID) String() string { return strconv.FormatInt(int64(p), 10) }

// TxRef is the opaque unique reference attached to each transaction record.
// It stands in for the underlying state-change reference (a chain tx hash in
// the contract deployment) and is safe to hand to explorers and auditors.
type TxRef string

// NewTxRef allocates a fresh reference.
func NewTxRef() TxRef { return TxRef(uuid.NewString()) }

func (r TxRef) String() string { return string(r) }
