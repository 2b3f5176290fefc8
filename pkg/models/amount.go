package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a stored money string. Anything that is not a plain
// decimal, including the empty string, is zero and reported as not ok.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
