package state

import (
	"context"
	"fmt"
	"time"

	"github.com/agroworld/storefront/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StateKey(parts ...string) string
}

// RedisPersister keeps state documents in redis with a sliding TTL.
type RedisPersister struct {
	store redisStore
	ttl   time.Duration
}

// NewRedisPersister builds a persister over the shared redis client. A zero ttl keeps documents forever.
func NewRedisPersister(store redisStore, ttl time.Duration) (*RedisPersister, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store is required")
	}
	return &RedisPersister{store: store, ttl: ttl}, nil
}

func (p *RedisPersister) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := p.store.Get(ctx, p.store.StateKey(key))
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read state %s: %w", key, err)
	}
	return []byte(raw), nil
}

func (p *RedisPersister) Put(ctx context.Context, key string, data []byte) error {
	if err := p.store.Set(ctx, p.store.StateKey(key), string(data), p.ttl); err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := p.store.Del(ctx, p.store.StateKey(key)); err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}
