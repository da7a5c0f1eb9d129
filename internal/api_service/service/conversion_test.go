package service

import (
	"testing"
	"time"

	"github.com/langowen/converter/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *entities.RateTable {
	return entities.NewRateTable("USD", map[string]float64{
		"USD": 1,
		"KRW": 1300,
		"JPY": 151.37,
		"EUR": 0.9,
	}, time.Date(2024, 5, 1, 9, 7, 0, 0, time.UTC))
}

func TestConvert_Examples(t *testing.T) {
	table := sampleTable()

	krw := Convert(table, ConversionRequest{From: "USD", To: "KRW", Amount: "10"})
	require.True(t, krw.OK)
	assert.InDelta(t, 13000, krw.Result, 1e-9)
	assert.Equal(t, "13,000", krw.FormattedResult)
	assert.Equal(t, "1,300", krw.FormattedRate)
	assert.Equal(t, 0, krw.Decimals)

	eur := Convert(table, ConversionRequest{From: "USD", To: "EUR", Amount: "10"})
	require.True(t, eur.OK)
	assert.InDelta(t, 9, eur.Result, 1e-9)
	assert.Equal(t, "9.00", eur.FormattedResult)
	assert.Equal(t, "0.90", eur.FormattedRate)
	assert.Equal(t, "1 USD = 0.90 EUR", eur.Info())
}

func TestConvert_CrossRate(t *testing.T) {
	c := Convert(sampleTable(), ConversionRequest{From: "EUR", To: "KRW", Amount: "1"})

	require.True(t, c.OK)
	assert.InDelta(t, 1300/0.9, c.Result, 1e-9)
	assert.Equal(t, "1,444", c.FormattedResult)
}

func TestConvert_Identity(t *testing.T) {
	table := sampleTable()

	for _, code := range []string{"USD", "KRW", "JPY", "EUR"} {
		for _, amount := range []string{"0", "0.1", "10", "1234.56", "99999999"} {
			c := Convert(table, ConversionRequest{From: code, To: code, Amount: amount})
			want, _ := ParseAmount(amount)

			require.True(t, c.OK)
			assert.Equal(t, want, c.Result, "%s %s", code, amount)
			assert.Equal(t, 1.0, c.Rate)
		}
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	table := sampleTable()
	codes := []string{"USD", "KRW", "JPY", "EUR"}

	for _, from := range codes {
		for _, to := range codes {
			for _, amount := range []float64{0, 0.01, 1, 10, 1234.5, 1e6} {
				there := Convert(table, ConversionRequest{From: from, To: to, Amount: FormatNumber(amount, 2)})
				require.True(t, there.OK)

				back := Convert(table, ConversionRequest{From: to, To: from, Amount: FormatNumber(there.Result, 10)})
				require.True(t, back.OK)

				assert.InDelta(t, amount, back.Result, 1e-6, "%s->%s %v", from, to, amount)
			}
		}
	}
}

func TestConvert_Placeholder(t *testing.T) {
	table := sampleTable()

	tests := []struct {
		name  string
		table *entities.RateTable
		req   ConversionRequest
	}{
		{name: "no table", table: nil, req: ConversionRequest{From: "USD", To: "KRW", Amount: "10"}},
		{name: "empty amount", table: table, req: ConversionRequest{From: "USD", To: "KRW", Amount: ""}},
		{name: "garbage amount", table: table, req: ConversionRequest{From: "USD", To: "KRW", Amount: "abc"}},
		{name: "nan amount", table: table, req: ConversionRequest{From: "USD", To: "KRW", Amount: "NaN"}},
		{name: "inf amount", table: table, req: ConversionRequest{From: "USD", To: "KRW", Amount: "+Inf"}},
		{name: "unknown currency", table: table, req: ConversionRequest{From: "USD", To: "GBP", Amount: "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Convert(tt.table, tt.req)

			assert.False(t, c.OK)
			assert.Equal(t, Placeholder, c.FormattedResult)
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, ok := ParseAmount(" 1,234.5 ")
	require.True(t, ok)
	assert.Equal(t, 1234.5, v)

	_, ok = ParseAmount("12abc")
	assert.False(t, ok)
}
