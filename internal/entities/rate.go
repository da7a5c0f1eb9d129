package entities

import (
	"sort"
	"time"
)

// RateTable is an immutable snapshot of rates relative to Base.
// It is replaced wholesale on every refresh.
type RateTable struct {
	base      string
	rates     map[string]float64
	updatedAt time.Time
}

// Snapshot is the wire form of a RateTable, used for redis, postgres and the HTTP API.
type Snapshot struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func NewRateTable(base string, rates map[string]float64, updatedAt time.Time) *RateTable {
	cp := make(map[string]float64, len(rates))
	for code, v := range rates {
		cp[code] = v
	}

	return &RateTable{
		base:      base,
		rates:     cp,
		updatedAt: updatedAt,
	}
}

func (t *RateTable) Base() string {
	return t.base
}

func (t *RateTable) UpdatedAt() time.Time {
	return t.updatedAt
}

func (t *RateTable) Rate(code string) (float64, bool) {
	v, ok := t.rates[code]
	return v, ok
}

func (t *RateTable) Len() int {
	return len(t.rates)
}

// Missing returns the codes from want that have no rate in the table.
func (t *RateTable) Missing(want []string) []string {
	var missing []string
	for _, code := range want {
		if _, ok := t.rates[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing
}

// Codes returns the currency codes in the table, sorted.
func (t *RateTable) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (t *RateTable) Snapshot() Snapshot {
	cp := make(map[string]float64, len(t.rates))
	for code, v := range t.rates {
		cp[code] = v
	}

	return Snapshot{
		Base:      t.base,
		Rates:     cp,
		UpdatedAt: t.updatedAt,
	}
}

func (s Snapshot) Table() *RateTable {
	return NewRateTable(s.Base, s.Rates, s.UpdatedAt)
}
