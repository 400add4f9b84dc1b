package notify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCompactUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1_200_000, "$1.2M"},
		{1_000_000, "$1.0M"},
		{950_000, "$950.0K"},
		{2_500_000_000, "$2.5B"},
		{3_100_000_000_000, "$3.1T"},
		{12.345, "$12.35"},
		{-1_500_000, "-$1.5M"},
		{0, "$0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCompactUSD(decimal.NewFromFloat(tt.in)), "input %v", tt.in)
	}
}

func TestFormatSpokenUSD(t *testing.T) {
	assert.Equal(t, "1.2 million dollars", FormatSpokenUSD(decimal.NewFromInt(1_200_000)))
	assert.Equal(t, "1 million dollars", FormatSpokenUSD(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, "750 thousand dollars", FormatSpokenUSD(decimal.NewFromInt(750_000)))
	assert.Equal(t, "42.5 dollars", FormatSpokenUSD(decimal.NewFromFloat(42.5)))
	assert.Equal(t, "0.000123 dollars", FormatSpokenUSD(decimal.NewFromFloat(0.000123)))
	assert.Equal(t, "0.00000012 dollars", FormatSpokenUSD(decimal.RequireFromString("0.00000012")))
	assert.Equal(t, "0.000000001235 dollars", FormatSpokenUSD(decimal.RequireFromString("0.0000000012345")))
	assert.Equal(t, "0.5 dollars", FormatSpokenUSD(decimal.RequireFromString("0.5")))
	assert.Equal(t, "0 dollars", FormatSpokenUSD(decimal.Zero))
}

func TestFormatSpokenPercent(t *testing.T) {
	assert.Equal(t, "25.3 percent", FormatSpokenPercent(decimal.NewFromFloat(-25.3)))
	assert.Equal(t, "20 percent", FormatSpokenPercent(decimal.NewFromInt(20)))
}

func TestFormatPercentAndPrice(t *testing.T) {
	assert.Equal(t, "25.3%", FormatPercent(decimal.NewFromFloat(-25.31)))
	assert.Equal(t, "$1.2345", FormatPrice(decimal.NewFromFloat(1.23449)))
	assert.Equal(t, "$0.00001234", FormatPrice(decimal.NewFromFloat(0.00001234)))
}

func TestSpeakableRemovesSymbols(t *testing.T) {
	got := Speakable("PEPE *pumped* 25%\nnow $1.2M #alert")
	assert.NotContains(t, got, "$")
	assert.NotContains(t, got, "%")
	assert.NotContains(t, got, "*")
	assert.NotContains(t, got, "#")
	assert.Contains(t, got, "25 percent")
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+14155550100", "+447911123456", "+12", "+1"}
	for _, p := range valid {
		require.NoError(t, ValidatePhone(p), p)
	}

	invalid := []string{"", "14155550100", "+", "+0123", "+1415555010012345", "+1 415 555 0100", "+1-415"}
	for _, p := range invalid {
		err := ValidatePhone(p)
		require.Error(t, err, p)
		assert.ErrorIs(t, err, ErrInvalidPhone)
	}
}
