package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/storefront/internal/models"
)

const (
	keyCart          = "cart:%d"
	maxUpdateRetries = 5
)

// RedisStore keeps the line list as one JSON value per user with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func cartKey(userID int64) string { return fmt.Sprintf(keyCart, userID) }

func (s *RedisStore) Load(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return s.load(ctx, s.rdb, cartKey(userID))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, key string) ([]models.CartLine, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.CartLine{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		// A corrupt value reads as an empty cart.
		return []models.CartLine{}, nil
	}
	return lines, nil
}

// Update runs fn under WATCH on the cart key and retries when another writer
// got there first.
func (s *RedisStore) Update(ctx context.Context, userID int64, fn func([]models.CartLine) ([]models.CartLine, error)) error {
	key := cartKey(userID)

	txf := func(tx *redis.Tx) error {
		lines, err := s.load(ctx, tx, key)
		if err != nil {
			return err
		}

		next, err := fn(lines)
		if err != nil {
			return err
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return errConcurrentUpdate
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return nil
}
