package service

import (
	"context"

	"github.com/langowen/converter/internal/entities"
)

// RedisStorage delivers snapshots published by the standalone currency_fetcher.
type RedisStorage interface {
	Latest(ctx context.Context) (*entities.RateTable, error)
	ListenUdp(ctx context.Context, handle func(table *entities.RateTable, err error)) error
}
