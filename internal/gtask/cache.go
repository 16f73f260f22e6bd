package gtask

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"

	"github.com/gmalla/backend/internal/models"
)

type UserCache interface {
	Get(ctx context.Context) ([]models.User, bool)
	Set(ctx context.Context, users []models.User) error
	Invalidate(ctx context.Context) error
}

type MemoryUserCache struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	users   []models.User
	expires time.Time
}

func NewMemoryUserCache(ttl time.Duration) *MemoryUserCache {
	return &MemoryUserCache{TTL: ttl}
}

func (m *MemoryUserCache) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryUserCache) Get(ctx context.Context) ([]models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil || !m.now().Before(m.expires) {
		return nil, false
	}
	out := make([]models.User, len(m.users))
	copy(out, m.users)
	return out, true
}

func (m *MemoryUserCache) Set(ctx context.Context, users []models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make([]models.User, len(users))
	copy(m.users, users)
	m.expires = m.now().Add(m.TTL)
	return nil
}

func (m *MemoryUserCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = nil
	return nil
}

const redisUsersKey = "gmalla:users"

// RedisUserCache shares the directory between replicas; expiry is left to redis.
type RedisUserCache struct {
	rdb *redis.Client
	ttl time.Duration
	key string
}

func NewRedisUserCache(url string, ttl time.Duration) (*RedisUserCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis url")
	}
	return &RedisUserCache{rdb: redis.NewClient(opt), ttl: ttl, key: redisUsersKey}, nil
}

func (r *RedisUserCache) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisUserCache) Close() error {
	return r.rdb.Close()
}

func (r *RedisUserCache) Get(ctx context.Context) ([]models.User, bool) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if err != nil {
		return nil, false
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, false
	}
	return users, true
}

func (r *RedisUserCache) Set(ctx context.Context, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key, data, r.ttl).Err()
}

func (r *RedisUserCache) Invalidate(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
