package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/langowen/converter/internal/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Storage struct {
	rdb     *redis.Client
	channel string
	key     string
}

func NewStorage(client *redis.Client, channel, key string) *Storage {
	return &Storage{
		rdb:     client,
		channel: channel,
		key:     key,
	}
}

func InitStorage(ctx context.Context, options *redis.Options, channel, key string) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(redisClient, channel, key), nil
}

// PublishUpd stores the snapshot under the latest key and announces it on the channel.
func (s *Storage) PublishUpd(ctx context.Context, table *entities.RateTable) error {
	const op = "storage.redis.PublishUpd"

	payload, err := json.Marshal(table.Snapshot())
	if err != nil {
		return errors.Wrap(err, op)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, payload, 0)
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, op)
	}

	slog.Debug("Published rates", "channel", s.channel, "count", table.Len())

	return nil
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}
