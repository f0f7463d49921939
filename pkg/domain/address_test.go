package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "landledger/pkg/domain-errors"
)

func TestParseAddress(t *testing.T) {
	t.Run("accepts a canonical address", func(t *testing.T) {
		addr, err := ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, err)
		assert.Equal(t, Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), addr)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		_, err := ParseAddress("  0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed  ")
		assert.NoError(t, err)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, input := range []string{
			"",
			"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAe",
			"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAedd",
			"0xZZZeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		} {
			_, err := ParseAddress(input)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput), "input %q", input)
		}
	})
}

func TestAddressEqualAndZero(t *testing.T) {
	t.Run("comparison ignores case", func(t *testing.T) {
		a := Address("0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD")
		b := Address("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
		assert.True(t, a.Equal(b))
	})

	t.Run("zero covers empty and the zero address", func(t *testing.T) {
		assert.True(t, Address("").IsZero())
		assert.True(t, ZeroAddress.IsZero())
		assert.True(t, Address("0x0000000000000000000000000000000000000000").IsZero())
		assert.False(t, Address("0x0000000000000000000000000000000000000001").IsZero())
	})
}

func TestAddressChecksum(t *testing.T) {
	// Reference vectors from the EIP-55 specification.
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range vectors {
		t.Run(want, func(t *testing.T) {
			lower := Address(want)
			assert.Equal(t, want, lower.Checksum())
		})
	}

	t.Run("checksum is stable regardless of input casing", func(t *testing.T) {
		upper := Address("0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", upper.Checksum())
	})
}
