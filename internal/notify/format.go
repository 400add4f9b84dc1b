package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{0,14}$`)

type magnitude struct {
	value  decimal.Decimal
	suffix string
	word   string
}

var magnitudes = []magnitude{
	{decimal.New(1, 12), "T", "trillion"},
	{decimal.New(1, 9), "B", "billion"},
	{decimal.New(1, 6), "M", "million"},
	{decimal.New(1, 3), "K", "thousand"},
}

// ValidatePhone checks that phone is in E.164 form: '+' followed by 1-15 digits
func ValidatePhone(phone string) error {
	if !e164.MatchString(phone) {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return nil
}

// FormatCompactUSD renders v as "$1.2M", "$950.0K", "$12.34"
func FormatCompactUSD(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	for _, m := range magnitudes {
		if v.GreaterThanOrEqual(m.value) {
			return sign + "$" + v.Div(m.value).StringFixed(1) + m.suffix
		}
	}
	return sign + "$" + v.StringFixed(2)
}

// FormatPrice renders a token price, keeping significant digits for sub-cent prices
func FormatPrice(v decimal.Decimal) string {
	if v.Abs().LessThan(decimal.NewFromFloat(0.01)) && !v.IsZero() {
		return "$" + trimZeros(v.StringFixed(10))
	}
	return "$" + v.StringFixed(4)
}

// FormatPercent renders a percentage with one decimal place, without sign
func FormatPercent(v decimal.Decimal) string {
	return v.Abs().StringFixed(1) + "%"
}

// FormatSpokenNumber renders v as words suitable for speech synthesis, e.g. "1.2 million"
func FormatSpokenNumber(v decimal.Decimal) string {
	prefix := ""
	if v.IsNegative() {
		prefix = "minus "
		v = v.Abs()
	}
	for _, m := range magnitudes {
		if v.GreaterThanOrEqual(m.value) {
			return prefix + trimZeros(v.Div(m.value).StringFixed(1)) + " " + m.word
		}
	}
	if v.GreaterThanOrEqual(decimal.NewFromInt(1)) || v.IsZero() {
		return prefix + trimZeros(v.StringFixed(2))
	}
	return prefix + trimZeros(v.StringFixed(fractionPlaces(v, spokenSignificantDigits)))
}

const spokenSignificantDigits = 4

// fractionPlaces returns the decimal places that keep sig significant digits of 0 < v < 1
func fractionPlaces(v decimal.Decimal, sig int32) int32 {
	leading := int32(0)
	ten := decimal.NewFromInt(10)
	for v.LessThan(decimal.NewFromInt(1)) && leading < 30 {
		v = v.Mul(ten)
		leading++
	}
	return leading + sig - 1
}

// FormatSpokenUSD renders v as "1.2 million dollars"
func FormatSpokenUSD(v decimal.Decimal) string {
	return FormatSpokenNumber(v) + " dollars"
}

// FormatSpokenPercent renders v as "25.3 percent", without sign
func FormatSpokenPercent(v decimal.Decimal) string {
	return trimZeros(v.Abs().StringFixed(1)) + " percent"
}

// Speakable strips characters that speech engines read out literally
func Speakable(text string) string {
	r := strings.NewReplacer("$", "", "%", " percent", "#", "", "*", "", "_", " ", "\n", ". ")
	return strings.Join(strings.Fields(r.Replace(text)), " ")
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
