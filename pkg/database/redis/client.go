package redis

import (
	"context"
	"fmt"
	"time"

	redisV9 "github.com/redis/go-redis/v9"

	"github.com/Handroo/elasticsearch-oai/pkg/settings"
	"github.com/Handroo/elasticsearch-oai/pkg/utils"
)

const (
	defaultPoolSize        = 10
	defaultMinIdleConns    = 5
	defaultPoolTimeout     = 5
	defaultDialTimeout     = 5
	defaultReadTimeout     = 3
	defaultWriteTimeout    = 3
	defaultMaxRetries      = 3
	defaultMinRetryBackoff = 300 // millis
	defaultMaxRetryBackoff = 500 // millis
)

type RedisEngine struct {
	client *redisV9.Client
	config *settings.Redis
}

// connect initializes the Redis client
func (r *RedisEngine) connect() error {
	r.setDefaultConfig()

	// Build address
	addr := r.config.Host
	if r.config.Port > 0 {
		addr = fmt.Sprintf("%s:%d", addr, r.config.Port)
	}

	r.client = redisV9.NewClient(&redisV9.Options{
		Addr:            addr,
		Password:        r.config.Password,
		DB:              r.config.Database,
		PoolSize:        r.config.PoolSize,
		MinIdleConns:    r.config.MinIdleConns,
		MaxRetries:      r.config.MaxRetries,
		DialTimeout:     utils.ToDuration(r.config.DialTimeout),
		ReadTimeout:     utils.ToDuration(r.config.ReadTimeout),
		WriteTimeout:    utils.ToDuration(r.config.WriteTimeout),
		PoolTimeout:     utils.ToDuration(r.config.PoolTimeout),
		MinRetryBackoff: utils.ToDurationMs(r.config.MinRetryBackoff),
		MaxRetryBackoff: utils.ToDurationMs(r.config.MaxRetryBackoff),
	})

	// Ping test
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPingFailed, err)
	}

	return nil
}

// setDefaultConfig sets default values for Redis configuration
func (r *RedisEngine) setDefaultConfig() {
	if r.config.PoolSize == 0 {
		r.config.PoolSize = defaultPoolSize
	}
	if r.config.MinIdleConns == 0 {
		r.config.MinIdleConns = defaultMinIdleConns
	}
	if r.config.PoolTimeout == 0 {
		r.config.PoolTimeout = defaultPoolTimeout
	}
	if r.config.DialTimeout == 0 {
		r.config.DialTimeout = defaultDialTimeout
	}
	if r.config.ReadTimeout == 0 {
		r.config.ReadTimeout = defaultReadTimeout
	}
	if r.config.WriteTimeout == 0 {
		r.config.WriteTimeout = defaultWriteTimeout
	}
	if r.config.MaxRetries == 0 {
		r.config.MaxRetries = defaultMaxRetries
	}
	if r.config.MinRetryBackoff == 0 {
		r.config.MinRetryBackoff = defaultMinRetryBackoff
	}
	if r.config.MaxRetryBackoff == 0 {
		r.config.MaxRetryBackoff = defaultMaxRetryBackoff
	}
}

// Get value by key
func (r *RedisEngine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	byteValue, err := r.client.Get(ctx, key).Bytes()
	if err == redisV9.Nil {
		return nil, false, ErrKeyNotFound
	}
	if err != nil {
		return nil, false, err
	}
	return byteValue, true, nil
}

// Set value by key
func (r *RedisEngine) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Delete key
func (r *RedisEngine) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close closes the Redis client
func (r *RedisEngine) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// Client returns the underlying redis client (Escape hatch)
func (r *RedisEngine) Client() *redisV9.Client {
	return r.client
}
