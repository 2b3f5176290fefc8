package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "1200.50", want: "1200.5", ok: true},
		{in: "  -3 ", want: "-3", ok: true},
		{in: "1e3", want: "1000", ok: true},
		{in: "", want: "0", ok: false},
		{in: "$1,200", want: "0", ok: false},
		{in: "n/a", want: "0", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "2024-03", Period{Year: 2024, Month: 3}.String())
	assert.Equal(t, "0999-12", Period{Year: 999, Month: 12}.String())
}
