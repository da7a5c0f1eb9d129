package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/langowen/converter/internal/entities"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS rate_snapshots (
    id         BIGSERIAL PRIMARY KEY,
    base       VARCHAR(3)  NOT NULL,
    rates      JSONB       NOT NULL,
    fetched_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS rate_snapshots_fetched_at_idx ON rate_snapshots (fetched_at DESC);
`

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{
		db: pool,
	}
}

func InitStorage(ctx context.Context, dsn string, timeout time.Duration) (*Storage, error) {
	const op = "storage.postgres.InitStorage"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op+": init schema")
	}

	return NewStorage(pool), nil
}

func (s *Storage) SaveRates(ctx context.Context, table *entities.RateTable) error {
	const op = "storage.postgres.SaveRates"

	snap := table.Snapshot()

	rates, err := json.Marshal(snap.Rates)
	if err != nil {
		return errors.Wrap(err, op)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO rate_snapshots (base, rates, fetched_at) VALUES ($1, $2, $3)`,
		snap.Base, rates, snap.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Close() {
	s.db.Close()
}
