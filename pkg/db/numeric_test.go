package db

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFitsNumeric(t *testing.T) {
	for _, v := range []string{"0", "12000", "0.0001", "-3.1415", "1.50000000", "9999999999999999.9999"} {
		assert.True(t, FitsNumeric(decimal.RequireFromString(v)), v)
	}
	for _, v := range []string{"0.00001", "1.23456", "10000000000000000"} {
		assert.False(t, FitsNumeric(decimal.RequireFromString(v)), v)
	}
}
