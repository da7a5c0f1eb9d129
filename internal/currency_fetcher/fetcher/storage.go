package fetcher

import (
	"context"

	"github.com/langowen/converter/internal/entities"
)

type Storage interface {
	SaveRates(ctx context.Context, table *entities.RateTable) error
}
