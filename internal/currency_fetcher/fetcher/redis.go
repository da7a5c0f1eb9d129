package fetcher

import (
	"context"

	"github.com/langowen/converter/internal/entities"
)

type RedisStorage interface {
	PublishUpd(ctx context.Context, table *entities.RateTable) error
}
