package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/pkg/config"
)

const keyPrefix = "staypay:webhook:processed:"

// ProcessedEvents remembers event ids that reached processed=true so
// redeliveries can be answered without touching the database. The database
// stays authoritative; a miss or an error falls through to it.
type ProcessedEvents interface {
	Lookup(ctx context.Context, eventID string) (eventType string, ok bool, err error)
	Remember(ctx context.Context, eventID, eventType string) error
}

type RedisProcessedEvents struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedEvents(client *redis.Client, ttl time.Duration) *RedisProcessedEvents {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisProcessedEvents{client: client, ttl: ttl}
}

func (r *RedisProcessedEvents) Lookup(ctx context.Context, eventID string) (string, bool, error) {
	v, err := r.client.Get(ctx, keyPrefix+eventID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get processed event: %w", err)
	}
	return v, true, nil
}

func (r *RedisProcessedEvents) Remember(ctx context.Context, eventID, eventType string) error {
	if err := r.client.Set(ctx, keyPrefix+eventID, eventType, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set processed event: %w", err)
	}
	return nil
}

// Noop is used when no redis address is configured.
type Noop struct{}

func (Noop) Lookup(context.Context, string) (string, bool, error) { return "", false, nil }
func (Noop) Remember(context.Context, string, string) error       { return nil }

// New connects to redis when configured. The cache is optional, so an
// unreachable server only logs a warning.
func New(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) ProcessedEvents {
	if cfg.Redis.Addr == "" {
		log.Infow("processed event cache disabled")
		return Noop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warnw("redis ping failed", "addr", cfg.Redis.Addr, "err", err)
				return nil
			}
			log.Infow("connected to redis", "addr", cfg.Redis.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisProcessedEvents(client, cfg.Redis.ProcessedTTL())
}

var Module = fx.Options(
	fx.Provide(New),
)
