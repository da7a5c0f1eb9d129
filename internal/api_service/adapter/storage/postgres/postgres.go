package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/langowen/converter/deploy/config"
	"github.com/langowen/converter/internal/entities"
	"github.com/pkg/errors"
)

const maxHistory = 500

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{
		db: pool,
	}
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(cfg.Storage.DSN())
	if err != nil {
		return nil, errors.Wrap(err, op+": parse config failed")
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("pgxpool connect failed", "error", err)
		return nil, errors.Wrap(err, op+": pgxpool connect failed")
	}

	if err := pool.Ping(ctx); err != nil {
		slog.Error("pgxpool ping failed", "error", err)
		pool.Close()
		return nil, errors.Wrap(err, op+": ping failed")
	}

	slog.Info("PostgresSQL storage initialized successfully")
	return NewStorage(pool), nil
}

// GetHistory returns the newest snapshots first.
func (s *Storage) GetHistory(ctx context.Context, limit int) ([]entities.Snapshot, error) {
	const op = "storage.postgres.GetHistory"

	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}

	rows, err := s.db.Query(ctx, `
		SELECT base, rates, fetched_at
		FROM rate_snapshots
		ORDER BY fetched_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	defer rows.Close()

	var history []entities.Snapshot

	for rows.Next() {
		var snap entities.Snapshot
		var raw []byte

		if err := rows.Scan(&snap.Base, &raw, &snap.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, op)
		}

		if err := json.Unmarshal(raw, &snap.Rates); err != nil {
			return nil, errors.Wrap(err, op)
		}

		history = append(history, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return history, nil
}

func (s *Storage) Close() {
	s.db.Close()
}
