package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/gatehouse/pkg/identity"
)

// keyNamespace prefixes registry entries in Redis so the registry can share
// a database with other consumers.
const keyNamespace = "gatehouse:loginkey:"

// Redis is a Store backed by a shared Redis database. It serves
// deployments where several processes form one logical server and must
// honor each other's login keys. Entries are written without TTL, matching
// the session-bound lifecycle of the in-process store.
type Redis struct {
	client *redis.Client
}

// RedisConfig holds Redis registry settings
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies connectivity
func NewRedis(cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing client; used by tests
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Put implements Store
func (r *Redis) Put(ctx context.Context, key string, p identity.Principal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	if err := r.client.Set(ctx, keyNamespace+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get implements Store
func (r *Redis) Get(ctx context.Context, key string) (identity.Principal, bool, error) {
	data, err := r.client.Get(ctx, keyNamespace+key).Result()
	if err == redis.Nil {
		return identity.Principal{}, false, nil
	} else if err != nil {
		return identity.Principal{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var p identity.Principal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		// Corrupt entries fail closed: drop them rather than trust them.
		r.client.Del(ctx, keyNamespace+key)
		return identity.Principal{}, false, fmt.Errorf("failed to unmarshal principal: %w", err)
	}
	return p, true, nil
}

// Remove implements Store
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyNamespace+key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Len implements Store
func (r *Redis) Len(ctx context.Context) (int, error) {
	var count int
	iter := r.client.Scan(ctx, 0, keyNamespace+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}

// Clear implements Store
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyNamespace+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return nil
}

// Ping verifies connectivity; used by the readiness probe
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}
