// Package money centralizes fixed-point arithmetic for monetary (two
// fractional digits) and volume (three fractional digits) values.
package money

import "github.com/shopspring/decimal"

// Round2 rounds to two fractional digits, half away from zero. All values
// in this system are non-negative at the point of rounding, which makes
// this equivalent to half-up.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Round3 rounds volumes to three fractional digits.
func Round3(d decimal.Decimal) decimal.Decimal { return d.Round(3) }

// Cent is the monetary balance tolerance used by transaction validation.
var Cent = decimal.NewFromFloat(0.01)

// Millilitre is the volume tolerance used by tank reconciliation.
var Millilitre = decimal.NewFromFloat(0.001)

// WithinCent reports whether |a-b| <= 0.01.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Cent)
}

// Zero is the shared decimal zero.
var Zero = decimal.Zero

// D parses a decimal literal. It panics on malformed input and exists for
// constants and tests, not for request data.
func D(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("money: bad literal " + s)
	}
	return d
}
