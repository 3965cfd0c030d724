package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyDedup = "dedup:reconcile:%s:%s"
	ttlDedup = 48 * time.Hour
)

// Deduper claims a gateway callback so concurrent duplicates skip the
// gateway round trip. Claims on failed callbacks are released so the user
// can retry.
type Deduper interface {
	Claim(ctx context.Context, method, reference string) (bool, error)
	Release(ctx context.Context, method, reference string) error
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttlDedup}
}

func dedupKey(method, reference string) string {
	return fmt.Sprintf(keyDedup, method, reference)
}

func (d *RedisDeduper) Claim(ctx context.Context, method, reference string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, dedupKey(method, reference), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim callback: %w", err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, method, reference string) error {
	if err := d.rdb.Del(ctx, dedupKey(method, reference)).Err(); err != nil {
		return fmt.Errorf("release callback: %w", err)
	}
	return nil
}

// noDedup always grants the claim; the payments unique constraint still
// holds the one-payment-per-order line.
type noDedup struct{}

func (noDedup) Claim(context.Context, string, string) (bool, error) { return true, nil }
func (noDedup) Release(context.Context, string, string) error       { return nil }
