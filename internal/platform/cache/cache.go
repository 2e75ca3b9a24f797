// Package cache provides a small JSON value cache backed by Redis, with an
// in-process fallback when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"
)

// Cache stores JSON-encodable values by key.
type Cache interface {
	// Get decodes the cached value into dest. ok is false on a miss.
	Get(ctx context.Context, key string, dest any) (ok bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Redis is a Cache over a go-redis client.
type Redis struct {
	client goredis.UniversalClient
	prefix string
}

func NewRedis(client goredis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Local is an in-process Cache. Values are stored encoded so callers never
// share mutable state with the cache.
type Local struct {
	c *gocache.Cache
}

func NewLocal(defaultTTL time.Duration) *Local {
	return &Local{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (l *Local) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return false, nil
	}
	raw, _ := v.([]byte)
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (l *Local) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	l.c.Set(key, raw, ttl)
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.c.Delete(key)
	return nil
}

// New returns a Redis cache when client is non-nil, otherwise a Local one.
func New(client goredis.UniversalClient, prefix string, defaultTTL time.Duration) Cache {
	if client != nil {
		return NewRedis(client, prefix)
	}
	return NewLocal(defaultTTL)
}
