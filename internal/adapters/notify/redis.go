package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

const (
	defaultRedisPrefix    = "tradewatch"
	defaultStatusTTL      = 30 * time.Second
	defaultRedisPingAfter = 5 * time.Second
)

// redisClient is the subset of *redis.Client the notifier uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisConfig configures the Redis sink.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string        // channel prefix, default "tradewatch"
	StatusTTL time.Duration // TTL of the <prefix>:status snapshot key
}

// Redis publishes every event as JSON on <prefix>:<kind> and keeps the
// latest CaptureStatus under <prefix>:status for late subscribers.
type Redis struct {
	client    redisClient
	prefix    string
	statusTTL time.Duration
}

// NewRedis connects to Redis and verifies the connection with a PING.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultRedisPingAfter)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("notify.NewRedis: ping %s: %w", cfg.Addr, err)
	}
	return newRedis(client, cfg), nil
}

// NewRedisWithClient wraps an existing client. Used in tests.
func NewRedisWithClient(client redisClient, cfg RedisConfig) *Redis {
	return newRedis(client, cfg)
}

func newRedis(client redisClient, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultRedisPrefix
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = defaultStatusTTL
	}
	return &Redis{client: client, prefix: cfg.Prefix, statusTTL: cfg.StatusTTL}
}

// Channel returns the pub/sub channel for an event kind.
func (r *Redis) Channel(kind domain.EventKind) string {
	return r.prefix + ":" + string(kind)
}

// Publish implements ports.Notifier.
func (r *Redis) Publish(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify.Redis.Publish: marshal %s: %w", e.Kind, err)
	}

	if err := r.client.Publish(ctx, r.Channel(e.Kind), body).Err(); err != nil {
		return fmt.Errorf("notify.Redis.Publish: %s: %w", e.Kind, err)
	}

	if e.Kind == domain.EventStatusUpdate {
		if err := r.client.Set(ctx, r.prefix+":status", body, r.statusTTL).Err(); err != nil {
			return fmt.Errorf("notify.Redis.Publish: status snapshot: %w", err)
		}
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
