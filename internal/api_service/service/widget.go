package service

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/langowen/converter/deploy/config"
	"github.com/langowen/converter/internal/entities"
	"github.com/langowen/converter/internal/metrics"
	"github.com/pkg/errors"
)

var ErrUnsupportedCurrency = errors.New("currency is not offered")

// RateDisplay is one header rate label: how many Code per one base unit.
type RateDisplay struct {
	Code     string
	Decimals int
}

var DefaultRateDisplays = []RateDisplay{
	{Code: "KRW", Decimals: 2},
	{Code: "JPY", Decimals: 2},
	{Code: "EUR", Decimals: 4},
}

type Labels struct {
	ErrorSentinel string
	Updated       string
	Failed        string
}

// View is everything the widget shows.
type View struct {
	From           string            `json:"from"`
	To             string            `json:"to"`
	Amount         string            `json:"amount"`
	Result         string            `json:"result"`
	ConversionRate string            `json:"conversion_rate"`
	ConversionInfo string            `json:"conversion_info"`
	Rates          map[string]string `json:"rates"`
	UpdateTime     string            `json:"update_time"`
	UpdatedAt      *time.Time        `json:"updated_at,omitempty"`
	Loading        bool              `json:"loading"`
	Failed         bool              `json:"failed"`
}

func (v View) clone() View {
	rates := make(map[string]string, len(v.Rates))
	for k, val := range v.Rates {
		rates[k] = val
	}
	v.Rates = rates

	if v.UpdatedAt != nil {
		at := *v.UpdatedAt
		v.UpdatedAt = &at
	}

	return v
}

// Widget is the converter controller. It owns the cached rate table and the
// user's selection, and re-renders its View on every event.
type Widget struct {
	mu sync.Mutex

	table      *entities.RateTable
	lastUpdate time.Time
	from       string
	to         string
	amount     string

	currencies []string
	required   []string
	displays   []RateDisplay
	labels     Labels
	location   *time.Location
	metrics    *metrics.Metrics

	view      View
	inFlight  int
	subs      map[int]func(View)
	nextSubID int

	debounce  time.Duration
	debouncer *Debouncer
}

type WidgetOption func(w *Widget)

func WithWidgetMetrics(m *metrics.Metrics) WidgetOption {
	return func(w *Widget) {
		w.metrics = m
	}
}

func WithLocation(loc *time.Location) WidgetOption {
	return func(w *Widget) {
		w.location = loc
	}
}

func WithRateDisplays(displays []RateDisplay) WidgetOption {
	return func(w *Widget) {
		w.displays = displays
	}
}

func NewWidget(cfg *config.Config, opts ...WidgetOption) *Widget {
	w := &Widget{
		from:       cfg.Widget.From,
		to:         cfg.Widget.To,
		amount:     cfg.Widget.Amount,
		currencies: cfg.Split("Currencies"),
		displays:   DefaultRateDisplays,
		labels: Labels{
			ErrorSentinel: cfg.Widget.ErrorSentinel,
			Updated:       cfg.Widget.UpdatedLabel,
			Failed:        cfg.Widget.FailedLabel,
		},
		location: time.Local,
		subs:     make(map[int]func(View)),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.required = slices.Clone(w.currencies)
	for _, d := range w.displays {
		if !slices.Contains(w.required, d.Code) {
			w.required = append(w.required, d.Code)
		}
	}

	w.debounce = cfg.Widget.Debounce
	w.debouncer = NewDebouncer(cfg.Widget.Debounce, w.Calculate)

	w.view = View{
		From:           w.from,
		To:             w.to,
		Amount:         w.amount,
		Result:         Placeholder,
		ConversionRate: Placeholder,
		Rates:          make(map[string]string, len(w.displays)),
	}
	for _, d := range w.displays {
		w.view.Rates[d.Code] = Placeholder
	}

	return w
}

func (w *Widget) Currencies() []string {
	return slices.Clone(w.currencies)
}

// Debounce is how long InputAmount waits for input to settle before recomputing.
func (w *Widget) Debounce() time.Duration {
	return w.debounce
}

func (w *Widget) Table() *entities.RateTable {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.table
}

func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.view.clone()
}

// Subscribe registers fn to receive every rendered View. The returned func unsubscribes.
func (w *Widget) Subscribe(fn func(View)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSubID
	w.nextSubID++
	w.subs[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// OnRefreshStart and OnRefreshEnd bracket every refresh; Loading stays set
// until the last refresh in flight has ended.
func (w *Widget) OnRefreshStart() {
	w.mu.Lock()
	w.inFlight++
	w.view.Loading = true
	w.publishLocked()
}

func (w *Widget) OnRefreshEnd() {
	w.mu.Lock()
	if w.inFlight > 0 {
		w.inFlight--
	}
	w.view.Loading = w.inFlight > 0
	w.publishLocked()
}

// OnRates replaces the table wholesale and redraws everything. A table that
// lacks an offered or displayed currency is treated as a failed update.
func (w *Widget) OnRates(table *entities.RateTable) {
	const op = "service.Widget.OnRates"

	if missing := table.Missing(w.required); len(missing) > 0 {
		w.OnFailure(errors.Wrapf(entities.ErrMissingRate, "%s: %s", op, strings.Join(missing, ",")))
		return
	}

	w.mu.Lock()

	w.table = table
	w.lastUpdate = table.UpdatedAt()

	w.renderRatesLocked()
	w.renderTimeLocked()
	w.calculateLocked()

	w.view.Failed = false

	w.publishLocked()
}

// OnFailure keeps the cached table but puts every header rate into the error state.
func (w *Widget) OnFailure(err error) {
	slog.Error("Rates update failed", "error", err)

	w.mu.Lock()

	w.view.UpdateTime = w.labels.Failed
	for _, d := range w.displays {
		w.view.Rates[d.Code] = w.labels.ErrorSentinel
	}
	w.view.Failed = true

	w.publishLocked()
}

// InputAmount records a keystroke; the conversion runs once input settles.
func (w *Widget) InputAmount(raw string) {
	w.mu.Lock()
	w.amount = raw
	w.view.Amount = raw
	w.mu.Unlock()

	w.debouncer.Trigger()
}

// Calculate recomputes the conversion immediately.
func (w *Widget) Calculate() {
	w.mu.Lock()
	w.calculateLocked()
	w.publishLocked()
}

// SetCurrencies changes the selection; an empty code keeps the current one.
func (w *Widget) SetCurrencies(from, to string) error {
	const op = "service.Widget.SetCurrencies"

	for _, code := range []string{from, to} {
		if code != "" && !slices.Contains(w.currencies, code) {
			return errors.Wrapf(ErrUnsupportedCurrency, "%s: %s", op, code)
		}
	}

	w.mu.Lock()
	if from != "" {
		w.from = from
	}
	if to != "" {
		w.to = to
	}
	w.calculateLocked()
	w.publishLocked()

	return nil
}

func (w *Widget) Swap() {
	w.mu.Lock()
	w.from, w.to = w.to, w.from
	w.calculateLocked()
	w.publishLocked()
}

func (w *Widget) Close() {
	w.debouncer.Stop()
}

func (w *Widget) renderRatesLocked() {
	for _, d := range w.displays {
		rate, ok := w.table.Rate(d.Code)
		if !ok {
			w.view.Rates[d.Code] = Placeholder
			continue
		}
		w.view.Rates[d.Code] = FormatNumber(rate, d.Decimals)
	}
}

func (w *Widget) renderTimeLocked() {
	at := w.lastUpdate.In(w.location)
	w.view.UpdateTime = fmt.Sprintf("%02d:%02d %s", at.Hour(), at.Minute(), w.labels.Updated)
	w.view.UpdatedAt = &at
}

func (w *Widget) calculateLocked() {
	c := Convert(w.table, ConversionRequest{From: w.from, To: w.to, Amount: w.amount})
	w.metrics.Conversion(c.OK)

	w.view.From = w.from
	w.view.To = w.to
	w.view.Amount = w.amount
	w.view.Result = c.FormattedResult
	w.view.ConversionRate = c.FormattedRate
	w.view.ConversionInfo = c.Info()
}

// publishLocked releases w.mu before calling subscribers so they may call back into the widget.
func (w *Widget) publishLocked() {
	view := w.view.clone()
	subs := make([]func(View), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}
