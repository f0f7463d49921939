package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

const (
	ownerAddr = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	otherAddr = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestNewRegistration(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		reg, err := NewRegistration("  SUR-1  ", " 7 Pier Road ", " QmDeed ")
		require.NoError(t, err)
		assert.Equal(t, "SUR-1", reg.PropertyNumber)
		assert.Equal(t, "7 Pier Road", reg.Location)
		assert.Equal(t, "QmDeed", reg.DocumentRef)
	})

	t.Run("every field is required", func(t *testing.T) {
		cases := [][3]string{
			{"", "loc", "ref"},
			{"SUR-1", "", "ref"},
			{"SUR-1", "loc", ""},
			{"   ", "loc", "ref"},
		}
		for _, tc := range cases {
			_, err := NewRegistration(tc[0], tc[1], tc[2])
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestCanTransfer(t *testing.T) {
	verified := Property{ID: 1, Owner: ownerAddr, IsVerified: true}

	t.Run("verification is checked before ownership", func(t *testing.T) {
		unverified := Property{ID: 1, Owner: ownerAddr, IsVerified: false}
		err := unverified.CanTransfer(otherAddr, ownerAddr)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotVerified))
	})

	t.Run("non-owner cannot transfer", func(t *testing.T) {
		err := verified.CanTransfer(otherAddr, ownerAddr)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("owner match ignores case", func(t *testing.T) {
		upper := domain.Address("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		assert.NoError(t, verified.CanTransfer(upper, otherAddr))
	})

	t.Run("zero and self targets are invalid", func(t *testing.T) {
		err := verified.CanTransfer(ownerAddr, domain.ZeroAddress)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidTarget))

		err = verified.CanTransfer(ownerAddr, ownerAddr)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidTarget))
	})
}

func TestApplyTransferAndVerification(t *testing.T) {
	p := Property{ID: 1, Owner: ownerAddr}

	p.ApplyVerification()
	assert.True(t, p.IsVerified)

	p.ApplyTransfer(otherAddr)
	assert.True(t, p.Owner.Equal(otherAddr))
	assert.True(t, p.IsVerified, "verification survives transfer")
}
