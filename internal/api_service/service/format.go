package service

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder is shown wherever a number cannot be computed.
const Placeholder = "--"

const (
	groupSeparator   = ","
	decimalSeparator = "."
)

// DecimalPlaces returns the display precision for amounts in the given currency.
func DecimalPlaces(code string) int {
	switch code {
	case "KRW", "JPY":
		return 0
	default:
		return 2
	}
}

// FormatNumber renders v with exactly decimals fraction digits, rounding half
// away from zero and grouping thousands the way the ko-KR locale does.
func FormatNumber(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}

	s := decimal.NewFromFloat(v).StringFixed(int32(decimals))

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.Grow(len(s) + len(intPart)/3 + 1)
	b.WriteString(sign)

	rem := len(intPart) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(intPart[:rem])
	for i := rem; i < len(intPart); i += 3 {
		b.WriteString(groupSeparator)
		b.WriteString(intPart[i : i+3])
	}

	if decimals > 0 {
		b.WriteString(decimalSeparator)
		b.WriteString(frac)
	}

	return b.String()
}
