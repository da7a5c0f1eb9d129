package service

import (
	"context"

	"github.com/langowen/converter/internal/entities"
)

type Storage interface {
	GetHistory(ctx context.Context, limit int) ([]entities.Snapshot, error)
}
