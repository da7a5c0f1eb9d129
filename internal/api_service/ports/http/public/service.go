package public

import (
	"context"
	"time"

	"github.com/langowen/converter/internal/api_service/service"
	"github.com/langowen/converter/internal/entities"
)

type Service interface {
	FetchRates(ctx context.Context) (*entities.Snapshot, error)
	RefreshRates(ctx context.Context) error
	FetchHistory(ctx context.Context, limit int) ([]entities.Snapshot, error)
	Convert(ctx context.Context, req service.ConversionRequest) service.Conversion
}

type Widget interface {
	View() service.View
	InputAmount(raw string)
	Debounce() time.Duration
	SetCurrencies(from, to string) error
	Swap()
}

type Pages interface {
	Page(urlPath string) ([]byte, error)
}
