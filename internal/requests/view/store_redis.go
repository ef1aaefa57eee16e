package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"civicledger/internal/requests/models"
	"civicledger/pkg/platform/sentinel"
)

const (
	DefaultRedisKey = "civicledger:view"

	// maxWatchAttempts bounds optimistic retries when another writer commits
	// between our read and our write.
	maxWatchAttempts = 5
)

// RedisStore keeps the snapshot as one JSON document. Updates use WATCH/MULTI
// so a concurrent writer forces fn to re-run against the newer snapshot.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKey overrides the key the snapshot is stored under.
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context) (models.View, error) {
	return s.read(ctx, s.client)
}

func (s *RedisStore) Update(ctx context.Context, fn UpdateFunc) (models.View, error) {
	var next models.View
	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode view: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return models.View{}, err
		}
	}
	return models.View{}, fmt.Errorf("update view: %w", sentinel.ErrConflict)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c getter) (models.View, error) {
	raw, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.View{}, nil
	}
	if err != nil {
		return models.View{}, fmt.Errorf("load view: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	var v models.View
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.View{}, fmt.Errorf("decode view: %w", err)
	}
	return v, nil
}
