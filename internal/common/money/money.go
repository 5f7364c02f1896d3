// Package money holds the fixed-point rules shared by every monetary field:
// two decimal places, half-up rounding.
package money

import "github.com/shopspring/decimal"

// Scale is the number of decimal places persisted for every amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round rounds d half away from zero to Scale places. For the non-negative
// amounts the engine rounds this is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// HasValidScale reports whether d carries no more than Scale decimal places.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

// Percent returns round(base * pct / 100).
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

// ClampNonNegative returns d, or zero when d is negative.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
