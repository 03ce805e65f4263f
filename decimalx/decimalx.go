// Package decimalx provides the fixed-precision decimal arithmetic used for
// Characteristic and ComputedCharacteristic aggregates: 8 digits after the
// point, half-even (banker's) rounding, never mixed with floating point.
// The number of significant digits is not bounded.
package decimalx

import "github.com/shopspring/decimal"

// Places is the number of digits retained after the decimal point for
// stored aggregates.
const Places = 8

// Zero is the canonical zero value for aggregate fields.
var Zero = decimal.Zero

// New wraps a shopspring/decimal.Decimal, rounding it to the canonical
// precision with half-even rounding.
func New(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// FromFloat builds a canonical decimal from a float64, primarily for tests
// and catalog loaders that source characteristic values from JSON numbers.
func FromFloat(f float64) decimal.Decimal {
	return New(decimal.NewFromFloat(f))
}

// Sum adds a slice of decimals and rounds the result to canonical
// precision.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return New(total)
}

// Percentage computes number/denominator at canonical precision, returning
// Zero when the denominator is zero or negative — mirroring the statistics
// engine's "set percentage = 0 when denom.number is not positive" rule.
func Percentage(number, denominator decimal.Decimal) decimal.Decimal {
	if denominator.Sign() <= 0 {
		return Zero
	}
	return New(number.Div(denominator))
}

// FromString parses a canonical decimal string, as stored by a SQL-backed
// Store column. Used at the persistence boundary only.
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
