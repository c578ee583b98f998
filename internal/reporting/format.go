package reporting

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// money renders v rounded half away from zero to cents, e.g. "-1234.57".
// Non-finite values render as "n/a".
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// dollars renders v as "$1,234.57" or "-$1,234.57".
func dollars(v float64) string {
	s := money(v)
	if s == "n/a" {
		return s
	}
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// pct renders an optional percentage with two decimals.
func pct(v *float64) string {
	if v == nil {
		return "-"
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(*v).StringFixed(2) + "%"
}

// ratio renders a dimensionless statistic, spelling out infinity.
func ratio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(3)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
