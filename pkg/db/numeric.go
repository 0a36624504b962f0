package db

import "github.com/shopspring/decimal"

// NumericScale is the fractional precision of the numeric(20,4) columns.
const NumericScale = 4

var numericLimit = decimal.New(1, 20-NumericScale)

// FitsNumeric reports whether d stores in a numeric(20,4) column
// unchanged.
func FitsNumeric(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(NumericScale)) && d.Abs().LessThan(numericLimit)
}
