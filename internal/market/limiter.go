package market

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter spaces outbound market data requests
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLocalLimiter allows one request per spacing within this process.
// A zero spacing disables limiting.
func NewLocalLimiter(spacing time.Duration) Limiter {
	if spacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(spacing), 1)
}

// RedisLimiter spaces requests across every instance sharing a Redis.
// When Redis is unreachable requests are let through.
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	key     string
	limit   redis_rate.Limit
	logger  *zap.Logger
}

// NewRedisLimiter allows one request per spacing for all holders of key
func NewRedisLimiter(client redis.UniversalClient, key string, spacing time.Duration, logger *zap.Logger) *RedisLimiter {
	if spacing <= 0 {
		spacing = time.Second
	}
	return &RedisLimiter{
		limiter: redis_rate.NewLimiter(client),
		key:     key,
		limit:   redis_rate.Limit{Rate: 1, Burst: 1, Period: spacing},
		logger:  logger,
	}
}

// Wait blocks until the shared limit admits a request or ctx is done
func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		res, err := l.limiter.Allow(ctx, l.key, l.limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("shared rate limit unavailable, not spacing request", zap.Error(err))
			return nil
		}
		if res.Allowed > 0 {
			return nil
		}

		wait := res.RetryAfter
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
