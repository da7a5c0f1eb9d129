package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"

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

// Latest returns the snapshot stored by the fetcher, or entities.ErrNotFound.
func (s *Storage) Latest(ctx context.Context) (*entities.RateTable, error) {
	const op = "storage.redis.Latest"

	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	table, err := decodeSnapshot(data)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return table, nil
}

// ListenUdp blocks until ctx is done, passing every published snapshot to handle.
func (s *Storage) ListenUdp(ctx context.Context, handle func(table *entities.RateTable, err error)) error {
	const op = "storage.redis.ListenUdp"

	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return entities.ErrRedisTimeout
		}
		return errors.Wrap(err, op)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-ch:
			if !ok {
				return entities.ErrRedisCanceled
			}

			slog.Debug("Received rates", "channel", msg.Channel)

			table, err := decodeSnapshot([]byte(msg.Payload))
			if err != nil {
				handle(nil, errors.Wrap(err, op))
				continue
			}
			handle(table, nil)
		}
	}
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}

func decodeSnapshot(data []byte) (*entities.RateTable, error) {
	var snap entities.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	if len(snap.Rates) == 0 {
		return nil, entities.ErrMissingRates
	}

	return snap.Table(), nil
}
