package alerting

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

const defaultCooldownPrefix = "token-alerts:cooldown:"

// RedisCooldown shares cooldown state between instances. Each key holds the
// fire time in unix milliseconds and expires with the window.
type RedisCooldown struct {
	client redis.UniversalClient
	window time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisCooldown creates a Redis-backed tracker; a zero window selects DefaultCooldown
func NewRedisCooldown(client redis.UniversalClient, window time.Duration, prefix string, logger *zap.Logger) *RedisCooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	if prefix == "" {
		prefix = defaultCooldownPrefix
	}
	return &RedisCooldown{client: client, window: window, prefix: prefix, logger: logger}
}

// IsSuppressed reports whether the kind last fired for alertID less than one window before now.
// Redis errors are logged and treated as not suppressed.
func (c *RedisCooldown) IsSuppressed(ctx context.Context, alertID int, kind models.TriggerKind, now time.Time) bool {
	val, err := c.client.Get(ctx, c.prefix+cooldownKey(alertID, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("cooldown lookup failed", zap.Int("alert_id", alertID), zap.String("kind", string(kind)), zap.Error(err))
		return false
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.logger.Warn("invalid cooldown value", zap.String("value", val), zap.Error(err))
		return false
	}
	return now.Sub(time.UnixMilli(ms)) < c.window
}

// RecordFired arms the cooldown for alertID and kind starting at now
func (c *RedisCooldown) RecordFired(ctx context.Context, alertID int, kind models.TriggerKind, now time.Time) {
	key := c.prefix + cooldownKey(alertID, kind)
	if err := c.client.Set(ctx, key, strconv.FormatInt(now.UnixMilli(), 10), c.window).Err(); err != nil {
		c.logger.Warn("failed to record cooldown", zap.String("key", key), zap.Error(err))
	}
}
