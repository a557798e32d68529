// Package currency holds the fixed-point money helpers shared by the billing,
// reconciliation and analytics services. Money is never a float64.
package currency

import "github.com/shopspring/decimal"

// Places is the number of minor-unit digits kept for stored amounts.
const Places = 2

// Epsilon is the one-cent tolerance used when comparing balances.
var Epsilon = decimal.New(1, -Places)

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// WithinEpsilon reports whether |d| < one cent.
func WithinEpsilon(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// Percent returns round(part / whole * 100) as an integer, or 0 when whole is
// zero.
func Percent(part, whole decimal.Decimal) int64 {
	if whole.IsZero() {
		return 0
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(0).IntPart()
}
