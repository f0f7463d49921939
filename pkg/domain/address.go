// Package domain defines the typed identifiers shared across the ledger.
//
// Wallet addresses and property IDs are distinct types so the compiler keeps
// them from being mixed up at call sites. Parsing happens once at the trust
// boundary (HTTP handlers, config); everything past that boundary works with
// parsed values.
package domain

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "landledger/pkg/domain-errors"
)

// Address is a wallet address: 0x followed by 40 hex digits.
// Comparisons are case-insensitive; Checksum renders the EIP-55 display form.
type Address string

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ZeroAddress is the all-zero address. It is never a valid owner or transfer
// target.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates the textual form of a wallet address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if !addressPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be 0x followed by 40 hex digits")
	}
	return Address(s), nil
}

// Equal compares two addresses case-insensitively.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// IsZero reports whether the address is empty or the all-zero address.
func (a Address) IsZero() bool {
	return a == "" || a.Equal(ZeroAddress)
}

// String returns the address as given, without checksum normalization.
func (a Address) String() string { return string(a) }

// Checksum returns the EIP-55 mixed-case form. Hex digits are upper-cased
// where the corresponding nibble of Keccak-256(lowercase-hex) is >= 8.
func (a Address) Checksum() string {
	body := strings.ToLower(strings.TrimPrefix(string(a), "0x"))
	sum := sha3.NewLegacyKeccak256()
	sum.Write([]byte(body))
	digest := hex.EncodeToString(sum.Sum(nil))

	out := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c = c - 'a' + 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}
