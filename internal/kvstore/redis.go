package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultMaxRetries = 8

// Redis keeps each key as a plain Redis string. Update uses WATCH/MULTI so that two
// writers racing on the same key never silently overwrite one another.
type Redis struct {
	client     *redis.Client
	logger     *slog.Logger
	maxRetries int
}

func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{
		client:     client,
		logger:     logger.With("component", "redis_kvstore"),
		maxRetries: defaultMaxRetries,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.WarnContext(ctx, "optimistic update lost race, retrying", "key", key, "attempt", attempt)
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: %w", key, ErrConflict)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
