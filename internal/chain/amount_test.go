package chain_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/chain"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

func TestParseDecimalAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1.5", 6, "1500000", false},
		{"0.000001", 6, "1", false},
		{".5", 2, "50", false},
		{"10", 0, "10", false},
		{"1.23456789", 6, "1234567", false},
		{"", 6, "", true},
		{"-1", 6, "", true},
		{"1.2.3", 6, "", true},
		{"abc", 6, "", true},
		{"1.x", 6, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := chain.ParseDecimalAmount(tc.in, tc.decimals)
			if tc.wantErr {
				require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestFormatDecimalAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount   *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(1_500_000), 6, "1.5"},
		{big.NewInt(1), 6, "0.000001"},
		{big.NewInt(0), 6, "0"},
		{big.NewInt(42), 0, "42"},
		{big.NewInt(-2_500), 3, "-2.5"},
		{nil, 6, "0"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, chain.FormatDecimalAmount(tc.amount, tc.decimals))
	}
}

func TestFormatCCD(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0.00", chain.FormatCCD(0))
	assert.Equal(t, "1.50", chain.FormatCCD(1_500_000))
	assert.Equal(t, "0.000001", chain.FormatCCD(1))
	assert.Equal(t, "12.345", chain.FormatCCD(12_345_000))
}

func TestParseCCD(t *testing.T) {
	t.Parallel()

	v, err := chain.ParseCCD("2.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000), v)

	_, err = chain.ParseCCD("99999999999999999999")
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}

func TestTokenAmounts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12.5", chain.FormatTokenAmount("12500", 3))
	assert.Equal(t, "0.001", chain.FormatTokenAmount("1", 3))
	assert.Equal(t, "7", chain.FormatTokenAmount("7", 0))
	assert.Equal(t, "n/a", chain.FormatTokenAmount("n/a", 2))

	raw, err := chain.ParseTokenAmount("12.5", 3)
	require.NoError(t, err)
	assert.Equal(t, "12500", raw)

	raw, err = chain.ParseTokenAmount("3", 0)
	require.NoError(t, err)
	assert.Equal(t, "3", raw)
}
