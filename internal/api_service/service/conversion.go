package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/langowen/converter/internal/entities"
)

type ConversionRequest struct {
	From   string
	To     string
	Amount string
}

type Conversion struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Amount   float64 `json:"amount"`
	Result   float64 `json:"result"`
	Rate     float64 `json:"rate"`
	Decimals int     `json:"decimals"`

	FormattedResult string `json:"formatted_result"`
	FormattedRate   string `json:"formatted_rate"`
	OK              bool   `json:"ok"`
}

// Info is the human readable unit rate line, e.g. "1 USD = 1,300 KRW".
func (c Conversion) Info() string {
	return fmt.Sprintf("1 %s = %s %s", c.From, c.FormattedRate, c.To)
}

// ParseAmount accepts a decimal number, optionally with thousands separators.
func ParseAmount(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), groupSeparator, "")
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}

// Convert goes through the base currency: amount / rate[from] * rate[to].
// Without a table, with an unknown code or with an unparsable amount the
// formatted fields hold Placeholder and OK is false.
func Convert(table *entities.RateTable, req ConversionRequest) Conversion {
	c := Conversion{
		From:            req.From,
		To:              req.To,
		Decimals:        DecimalPlaces(req.To),
		FormattedResult: Placeholder,
		FormattedRate:   Placeholder,
	}

	if table == nil {
		return c
	}

	fromRate, okFrom := table.Rate(req.From)
	toRate, okTo := table.Rate(req.To)
	if !okFrom || !okTo || fromRate <= 0 {
		return c
	}

	if req.From == req.To {
		c.Rate = 1
	} else {
		c.Rate = toRate / fromRate
	}
	c.FormattedRate = FormatNumber(c.Rate, c.Decimals)

	amount, ok := ParseAmount(req.Amount)
	if !ok {
		return c
	}
	c.Amount = amount

	if req.From == req.To {
		c.Result = amount
	} else {
		c.Result = amount / fromRate * toRate
	}
	c.FormattedResult = FormatNumber(c.Result, c.Decimals)
	c.OK = true

	return c
}
