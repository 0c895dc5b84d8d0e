package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	defaultWindow = time.Minute
	opTimeout     = 500 * time.Millisecond
)

// RedisStore is a fixed-window counter shared by every instance that points
// at the same redis. It implements echo's RateLimiterStore.
type RedisStore struct {
	Client *redis.Client
	Prefix string
	Limit  int64
	Window time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, limit int) *RedisStore {
	return &RedisStore{
		Client: client,
		Prefix: prefix,
		Limit:  int64(limit),
		Window: defaultWindow,
	}
}

func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	count, err := s.incrementWithTTL(ctx, s.Prefix+identifier)
	if err != nil {
		return false, err
	}
	return count <= s.Limit, nil
}

func (s *RedisStore) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := s.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: incr: %w", err)
	}

	// TTL only on the first hit so the window does not slide.
	if count == 1 {
		window := s.Window
		if window <= 0 {
			window = defaultWindow
		}
		if err := s.Client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}
	return count, nil
}

// NewMemoryStore is the single-instance fallback: a token bucket per
// identifier refilling perMinute tokens a minute.
func NewMemoryStore(perMinute int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
}

// NewClient parses a redis:// URL and checks the server answers.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}
	return client, nil
}

type failOpen struct {
	store  middleware.RateLimiterStore
	logger *slog.Logger
}

// FailOpen lets requests through when store errors, so a redis outage does
// not lock every client out of login.
func FailOpen(store middleware.RateLimiterStore, logger *slog.Logger) middleware.RateLimiterStore {
	return &failOpen{store: store, logger: logger}
}

func (f *failOpen) Allow(identifier string) (bool, error) {
	ok, err := f.store.Allow(identifier)
	if err != nil {
		f.logger.Warn("ratelimit_unavailable", "error", err)
		return true, nil
	}
	return ok, nil
}
