package alerting

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/trogers1052/token-alert-system/internal/metrics"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// DefaultCooldown is how long a fired trigger kind stays suppressed for an alert
const DefaultCooldown = 15 * time.Minute

// CooldownTracker suppresses repeat notifications for the same alert and trigger kind
type CooldownTracker interface {
	IsSuppressed(ctx context.Context, alertID int, kind models.TriggerKind, now time.Time) bool
	RecordFired(ctx context.Context, alertID int, kind models.TriggerKind, now time.Time)
}

func cooldownKey(alertID int, kind models.TriggerKind) string {
	return strconv.Itoa(alertID) + ":" + string(kind)
}

// MemoryCooldown keeps last fire times in process memory. State is lost on restart.
type MemoryCooldown struct {
	window time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	lastFire map[string]time.Time
}

// NewMemoryCooldown creates an in-memory tracker; a zero window selects DefaultCooldown
func NewMemoryCooldown(window time.Duration, logger *zap.Logger) *MemoryCooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &MemoryCooldown{
		window:   window,
		logger:   logger,
		lastFire: make(map[string]time.Time),
	}
}

// Window returns the suppression window
func (c *MemoryCooldown) Window() time.Duration {
	return c.window
}

// IsSuppressed reports whether the kind last fired for alertID less than one window before now
func (c *MemoryCooldown) IsSuppressed(_ context.Context, alertID int, kind models.TriggerKind, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.lastFire[cooldownKey(alertID, kind)]
	return ok && now.Sub(last) < c.window
}

// RecordFired arms the cooldown for alertID and kind starting at now
func (c *MemoryCooldown) RecordFired(_ context.Context, alertID int, kind models.TriggerKind, now time.Time) {
	c.mu.Lock()
	c.lastFire[cooldownKey(alertID, kind)] = now
	n := len(c.lastFire)
	c.mu.Unlock()

	metrics.CooldownEntries.Set(float64(n))
}

// Len returns the number of tracked entries
func (c *MemoryCooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastFire)
}

// Sweep removes entries that fired more than maxAge before now and returns how many were removed.
// maxAge below the window is raised to the window so live suppressions are never dropped.
func (c *MemoryCooldown) Sweep(now time.Time, maxAge time.Duration) int {
	if maxAge < c.window {
		maxAge = c.window
	}

	c.mu.Lock()
	removed := 0
	for key, last := range c.lastFire {
		if now.Sub(last) >= maxAge {
			delete(c.lastFire, key)
			removed++
		}
	}
	n := len(c.lastFire)
	c.mu.Unlock()

	metrics.CooldownEntries.Set(float64(n))
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done. A zero interval returns immediately
// and leaves entries in place for the life of the process.
func (c *MemoryCooldown) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := c.Sweep(now, maxAge); removed > 0 {
				c.logger.Debug("evicted stale cooldown entries", zap.Int("removed", removed))
			}
		}
	}
}
