package models

import (
	"time"

	"landledger/pkg/domain"
)

// Profile is a KYC record keyed by wallet address. It lives outside the
// ledger: registry operations never read it, only the transfer policy gate
// and the profile endpoints do.
type Profile struct {
	Wallet     domain.Address
	FullName   string
	NationalID string
	Phone      string
	Residence  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Submission is the caller-supplied profile payload. National ID and phone
// formats follow the registry's KYC provider requirements.
type Submission struct {
	FullName   string `json:"full_name" validate:"required"`
	NationalID string `json:"national_id" validate:"required,len=12,numeric"`
	Phone      string `json:"phone" validate:"required,len=10,numeric"`
	Residence  string `json:"residence" validate:"required"`
}
