package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		decimals int
		want     string
	}{
		{name: "integer grouping", v: 13000, decimals: 0, want: "13,000"},
		{name: "two decimals padded", v: 9, decimals: 2, want: "9.00"},
		{name: "four decimals", v: 0.9, decimals: 4, want: "0.9000"},
		{name: "rounds half away from zero", v: 2.5, decimals: 0, want: "3"},
		{name: "rounds fraction", v: 1234.5678, decimals: 2, want: "1,234.57"},
		{name: "millions", v: 1234567.891, decimals: 2, want: "1,234,567.89"},
		{name: "exact group boundary", v: 123456, decimals: 0, want: "123,456"},
		{name: "small", v: 12, decimals: 0, want: "12"},
		{name: "negative", v: -1234.5, decimals: 2, want: "-1,234.50"},
		{name: "zero", v: 0, decimals: 2, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.v, tt.decimals))
		})
	}
}

func TestFormatNumber_Placeholder(t *testing.T) {
	assert.Equal(t, Placeholder, FormatNumber(math.NaN(), 2))
	assert.Equal(t, Placeholder, FormatNumber(math.Inf(1), 0))
	assert.Equal(t, Placeholder, FormatNumber(math.Inf(-1), 0))
}

func TestDecimalPlaces(t *testing.T) {
	assert.Equal(t, 0, DecimalPlaces("KRW"))
	assert.Equal(t, 0, DecimalPlaces("JPY"))
	assert.Equal(t, 2, DecimalPlaces("USD"))
	assert.Equal(t, 2, DecimalPlaces("EUR"))
	assert.Equal(t, 2, DecimalPlaces("GBP"))
}
