package service

import (
	"context"
	"log/slog"

	"github.com/langowen/converter/internal/entities"
	"github.com/pkg/errors"
)

var (
	ErrRefreshUnavailable = errors.New("rates are refreshed by an external fetcher")
	ErrHistoryDisabled    = errors.New("rate history storage is disabled")
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

type Service struct {
	widget    *Widget
	refresher Refresher
	storage   Storage
}

type Option func(s *Service)

func WithRefresher(r Refresher) Option {
	return func(s *Service) {
		s.refresher = r
	}
}

func WithStorage(storage Storage) Option {
	return func(s *Service) {
		s.storage = storage
	}
}

func NewService(widget *Widget, opts ...Option) (*Service, error) {
	if widget == nil {
		return nil, errors.New("service.NewService: widget is required")
	}

	s := &Service{widget: widget}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) Widget() *Widget {
	return s.widget
}

func (s *Service) FetchRates(ctx context.Context) (*entities.Snapshot, error) {
	table := s.widget.Table()
	if table == nil {
		return nil, entities.ErrNoRates
	}

	snap := table.Snapshot()
	return &snap, nil
}

func (s *Service) RefreshRates(ctx context.Context) error {
	if s.refresher == nil {
		return ErrRefreshUnavailable
	}

	return s.refresher.Refresh(ctx)
}

func (s *Service) FetchHistory(ctx context.Context, limit int) ([]entities.Snapshot, error) {
	const op = "service.FetchHistory"

	if s.storage == nil {
		return nil, ErrHistoryDisabled
	}

	history, err := s.storage.GetHistory(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return history, nil
}

// Convert runs a one-off conversion under the current table without touching the widget state.
func (s *Service) Convert(ctx context.Context, req ConversionRequest) Conversion {
	return Convert(s.widget.Table(), req)
}

// Listen feeds the widget from redis: the latest stored snapshot first, then
// every published update, until ctx is done.
func (s *Service) Listen(ctx context.Context, redis RedisStorage) error {
	const op = "service.Listen"

	latest, err := redis.Latest(ctx)
	switch {
	case err == nil:
		s.widget.OnRates(latest)
	case errors.Is(err, entities.ErrNotFound):
		slog.Info("No rates snapshot in redis yet", "op", op)
	default:
		s.widget.OnFailure(err)
	}

	err = redis.ListenUdp(ctx, func(table *entities.RateTable, err error) {
		if err != nil {
			s.widget.OnFailure(err)
			return
		}
		s.widget.OnRates(table)
	})
	if err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}
