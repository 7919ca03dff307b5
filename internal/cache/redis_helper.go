package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/objzip/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout   = 5 * time.Second
	scanBatchSize = 100
	clientName    = "objzip"
)

func newRedisClient(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// redisOptions prefers REDIS_URL and falls back to the discrete host settings.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	if opts.ClientName == "" {
		opts.ClientName = clientName
	}
	return opts, nil
}

func scanKeys(ctx context.Context, client *redis.Client, prefix string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	pattern := prefix + "*"
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan failed: %w", err)
		}
		out = append(out, keys...)

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
