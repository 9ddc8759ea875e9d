package issuer

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store remembers which token nonces were issued and are still live.
type Store interface {
	Save(ctx context.Context, nonce string, ttl time.Duration) error
	Exists(ctx context.Context, nonce string) (bool, error)
}

// MemoryStore keeps nonces in an in-process expiring cache.
type MemoryStore struct{ c *gocache.Cache }

// NewMemoryStore creates a MemoryStore whose entries default to ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(ttl, time.Minute)}
}

func (m *MemoryStore) Save(_ context.Context, nonce string, ttl time.Duration) error {
	m.c.Set(nonce, struct{}{}, ttl)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, nonce string) (bool, error) {
	_, ok := m.c.Get(nonce)
	return ok, nil
}

// RedisStore keeps nonces as expiring Redis keys.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. Keys are prefix+nonce.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Save(ctx context.Context, nonce string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+nonce, 1, ttl).Err()
}

func (r *RedisStore) Exists(ctx context.Context, nonce string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+nonce).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
