// Package money converts between stored cent amounts and decimal values,
// rounding to two places at presentation boundaries.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FromCents returns the decimal value of a cent amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents with exactly two decimal places.
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// Percent returns part/whole*100 rounded to the nearest integer.
// A zero whole yields 0.
func Percent(part, whole int64) int {
	if whole == 0 {
		return 0
	}
	return int(decimal.NewFromInt(part).
		Mul(hundred).
		Div(decimal.NewFromInt(whole)).
		Round(0).
		IntPart())
}

// Split divides total cents into n equal parts rounded to the cent.
// n below 1 is treated as 1.
func Split(total int64, n int) int64 {
	if n < 1 {
		n = 1
	}
	return decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(n))).
		Round(0).
		IntPart()
}
