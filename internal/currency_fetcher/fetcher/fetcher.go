package fetcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/langowen/converter/deploy/config"
	"github.com/langowen/converter/internal/entities"
	"github.com/langowen/converter/internal/metrics"
	"github.com/pkg/errors"
)

type Fetcher struct {
	httpClient HTTPClient
	storage    Storage
	redis      RedisStorage
	listeners  []Listener
	metrics    *metrics.Metrics

	url      string
	timeout  time.Duration
	interval time.Duration
	required []string

	issued  atomic.Uint64
	mu      sync.Mutex
	applied uint64

	mirrorMu sync.Mutex
	mirrored uint64
}

type Option func(f *Fetcher)

func WithStorage(storage Storage) Option {
	return func(f *Fetcher) {
		f.storage = storage
	}
}

func WithRedis(redis RedisStorage) Option {
	return func(f *Fetcher) {
		f.redis = redis
	}
}

func WithListener(l Listener) Option {
	return func(f *Fetcher) {
		f.listeners = append(f.listeners, l)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

func NewFetcher(client HTTPClient, cfg *config.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: client,
		url:        cfg.Fetcher.URL,
		timeout:    cfg.Fetcher.Timeout,
		interval:   cfg.Fetcher.Interval,
		required:   cfg.Split("Currencies"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// StartFetcher refreshes immediately and then on every tick until ctx is done.
// Failed refreshes are logged; the next tick is the only retry.
func (f *Fetcher) StartFetcher(ctx context.Context) error {
	const op = "fetcher.StartFetcher"

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	if err := f.Refresh(ctx); err != nil {
		slog.Error("Failed to refresh rates", "op", op, "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := f.Refresh(ctx); err != nil {
				slog.Error("Failed to refresh rates", "op", op, "error", err)
			}

		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		}
	}
}

// Refresh fetches one rate table and hands the outcome to the listeners.
// A result that arrives after a newer refresh has already been applied is dropped.
func (f *Fetcher) Refresh(ctx context.Context) error {
	const op = "fetcher.Refresh"

	seq := f.issued.Add(1)
	f.notifyStart()
	defer f.notifyEnd()

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	started := time.Now()
	table, err := f.fetchRate(fetchCtx)
	took := time.Since(started)

	if !f.apply(seq, table, err) {
		f.metrics.StaleResponse()
		slog.Warn("Discarding stale rates response", "op", op, "seq", seq)
		if err != nil {
			return errors.Wrap(err, op)
		}
		return nil
	}

	if err != nil {
		f.metrics.FetchFailed(took)
		return errors.Wrap(err, op)
	}

	f.metrics.FetchSucceeded(took, table.UpdatedAt())
	slog.Info("Rates updated", "base", table.Base(), "count", table.Len(), "seq", seq)

	f.mirror(ctx, seq, table)

	return nil
}

func (f *Fetcher) fetchRate(ctx context.Context) (*entities.RateTable, error) {
	const op = "fetcher.fetchRate"

	table, err := f.httpClient.ApiClient(ctx, f.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if missing := table.Missing(f.required); len(missing) > 0 {
		return nil, errors.Wrapf(entities.ErrMissingRate, "%s: %s", op, strings.Join(missing, ","))
	}

	return table, nil
}

// apply delivers the result of request seq unless a newer one was applied first.
func (f *Fetcher) apply(seq uint64, table *entities.RateTable, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if seq < f.applied {
		return false
	}
	f.applied = seq

	for _, l := range f.listeners {
		if err != nil {
			l.OnFailure(err)
			continue
		}
		l.OnRates(table)
	}

	return true
}

func (f *Fetcher) notifyStart() {
	for _, l := range f.listeners {
		l.OnRefreshStart()
	}
}

func (f *Fetcher) notifyEnd() {
	for _, l := range f.listeners {
		l.OnRefreshEnd()
	}
}

// mirror writes table to history and redis unless a newer refresh already did.
// Writes are serialized so redis always ends on the newest snapshot.
func (f *Fetcher) mirror(ctx context.Context, seq uint64, table *entities.RateTable) {
	const op = "fetcher.mirror"

	f.mirrorMu.Lock()
	defer f.mirrorMu.Unlock()

	if seq < f.mirrored {
		f.metrics.StaleResponse()
		slog.Warn("Skipping mirror of stale rates", "op", op, "seq", seq)
		return
	}
	f.mirrored = seq

	if f.storage != nil {
		if err := f.storage.SaveRates(ctx, table); err != nil {
			slog.Error("Failed to save rates history", "op", op, "error", err)
		}
	}

	if f.redis != nil {
		if err := f.redis.PublishUpd(ctx, table); err != nil {
			slog.Error("Failed to publish rates", "op", op, "error", err)
		}
	}
}
