package fetcher

import (
	"context"

	"github.com/langowen/converter/internal/entities"
)

type HTTPClient interface {
	ApiClient(ctx context.Context, url string) (*entities.RateTable, error)
}
