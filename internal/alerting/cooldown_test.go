package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

func TestMemoryCooldown_Window(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCooldown(15*time.Minute, zap.NewNop())
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, c.IsSuppressed(ctx, 7, models.TriggerMarketCapHigh, t0))

	c.RecordFired(ctx, 7, models.TriggerMarketCapHigh, t0)
	assert.True(t, c.IsSuppressed(ctx, 7, models.TriggerMarketCapHigh, t0.Add(5*time.Minute)))
	assert.True(t, c.IsSuppressed(ctx, 7, models.TriggerMarketCapHigh, t0.Add(15*time.Minute-time.Nanosecond)))
	assert.False(t, c.IsSuppressed(ctx, 7, models.TriggerMarketCapHigh, t0.Add(15*time.Minute)))
	assert.False(t, c.IsSuppressed(ctx, 7, models.TriggerMarketCapHigh, t0.Add(16*time.Minute)))
}

func TestMemoryCooldown_KeyedByAlertAndKind(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCooldown(0, zap.NewNop())
	now := time.Now()

	c.RecordFired(ctx, 1, models.TriggerMarketCapHigh, now)

	assert.True(t, c.IsSuppressed(ctx, 1, models.TriggerMarketCapHigh, now))
	assert.False(t, c.IsSuppressed(ctx, 1, models.TriggerPriceChange, now))
	assert.False(t, c.IsSuppressed(ctx, 2, models.TriggerMarketCapHigh, now))
	assert.Equal(t, DefaultCooldown, c.Window())
}

func TestMemoryCooldown_Sweep(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCooldown(time.Minute, zap.NewNop())
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c.RecordFired(ctx, 1, models.TriggerVolume, t0)
	c.RecordFired(ctx, 2, models.TriggerVolume, t0.Add(3*time.Minute))
	assert.Equal(t, 2, c.Len())

	removed := c.Sweep(t0.Add(4*time.Minute), 4*time.Minute)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.IsSuppressed(ctx, 1, models.TriggerVolume, t0.Add(4*time.Minute)))
}

func TestMemoryCooldown_SweepNeverDropsLiveEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCooldown(10*time.Minute, zap.NewNop())
	t0 := time.Now()

	c.RecordFired(ctx, 1, models.TriggerVolume, t0)
	assert.Zero(t, c.Sweep(t0.Add(5*time.Minute), time.Second))
	assert.True(t, c.IsSuppressed(ctx, 1, models.TriggerVolume, t0.Add(5*time.Minute)))
}

func TestMemoryCooldown_RunSweeperDisabled(t *testing.T) {
	c := NewMemoryCooldown(time.Minute, zap.NewNop())

	done := make(chan struct{})
	go func() {
		c.RunSweeper(context.Background(), 0, time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper with zero interval should return immediately")
	}
}
