package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/token-alert-system/internal/metrics"
	"github.com/trogers1052/token-alert-system/internal/models"
	"github.com/trogers1052/token-alert-system/internal/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultGroupDelay spaces consecutive token groups in sequential mode
const DefaultGroupDelay = time.Second

var tracer = otel.Tracer("github.com/trogers1052/token-alert-system/internal/alerting")

// AlertStore loads alert configurations and records dispatch outcomes
type AlertStore interface {
	ListEnabledAlerts(ctx context.Context) ([]*models.AlertConfig, error)
	RecordNotification(ctx context.Context, trigger models.TriggerEvent, result models.DispatchResult) error
}

// MarketDataRecorder is implemented by stores that cache the latest snapshot for display
type MarketDataRecorder interface {
	UpdateMarketData(ctx context.Context, snap *models.MarketSnapshot) error
}

// SnapshotFetcher returns the current market snapshot for a token, or false when unavailable
type SnapshotFetcher interface {
	Fetch(ctx context.Context, tokenID string) (*models.MarketSnapshot, bool)
}

// Notifier delivers a trigger on its enabled channels
type Notifier interface {
	Dispatch(ctx context.Context, t models.TriggerEvent) notify.Outcome
}

// ProcessorConfig tunes a processing cycle
type ProcessorConfig struct {
	// GroupDelay is the pause between token groups when Workers is 1
	GroupDelay time.Duration
	// Workers bounds how many token groups are processed at once. Above 1,
	// upstream spacing is left to the fetcher's limiter.
	Workers int
}

// Processor runs one alert processing cycle: load, group, fetch, evaluate, dispatch
type Processor struct {
	store    AlertStore
	fetcher  SnapshotFetcher
	notifier Notifier
	cooldown CooldownTracker
	cfg      ProcessorConfig
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Processor
type Option func(*Processor)

// WithClock overrides the time source used to arm and check cooldowns
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithSleep overrides the delay between token groups
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Processor) { p.sleep = sleep }
}

// NewProcessor creates a Processor
func NewProcessor(store AlertStore, fetcher SnapshotFetcher, notifier Notifier, cooldown CooldownTracker, cfg ProcessorConfig, logger *zap.Logger, opts ...Option) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.GroupDelay < 0 {
		cfg.GroupDelay = 0
	}
	p := &Processor{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		cooldown: cooldown,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full cycle and returns its statistics. It never fails:
// storage, upstream and channel problems are logged and counted. When ctx is
// cancelled no further token groups are started.
func (p *Processor) Run(ctx context.Context) models.CycleStatistics {
	start := time.Now()
	cycleID := uuid.NewString()
	log := p.logger.With(zap.String("cycle_id", cycleID))

	ctx, span := tracer.Start(ctx, "alerting.cycle")
	defer span.End()

	var stats models.CycleStatistics
	defer func() {
		metrics.CyclesTotal.Inc()
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(
			attribute.String("cycle.id", cycleID),
			attribute.Int("cycle.processed", stats.Processed),
			attribute.Int("cycle.triggered", stats.Triggered),
			attribute.Int("cycle.sent", stats.Sent),
			attribute.Int("cycle.errors", stats.Errors),
		)
	}()

	alerts, err := p.store.ListEnabledAlerts(ctx)
	if err != nil {
		log.Error("failed to load enabled alerts", zap.Error(err))
		stats.Errors++
		return stats
	}

	groups := groupByToken(alerts)
	if len(groups) == 0 {
		log.Debug("no enabled alerts")
		return stats
	}

	if p.cfg.Workers == 1 {
		stats = p.runSequential(ctx, log, groups)
	} else {
		stats = p.runPool(ctx, log, groups)
	}

	log.Info("alert cycle complete",
		zap.Int("tokens", len(groups)),
		zap.Int("processed", stats.Processed),
		zap.Int("triggered", stats.Triggered),
		zap.Int("sent", stats.Sent),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", time.Since(start)),
	)
	return stats
}

func (p *Processor) runSequential(ctx context.Context, log *zap.Logger, groups []tokenGroup) models.CycleStatistics {
	var stats models.CycleStatistics
	for i, g := range groups {
		if i > 0 && p.cfg.GroupDelay > 0 {
			if err := p.sleep(ctx, p.cfg.GroupDelay); err != nil {
				log.Info("cycle cancelled", zap.Int("remaining_tokens", len(groups)-i))
				return stats
			}
		}
		if ctx.Err() != nil {
			log.Info("cycle cancelled", zap.Int("remaining_tokens", len(groups)-i))
			return stats
		}
		stats.Add(p.processGroup(ctx, log, g))
	}
	return stats
}

func (p *Processor) runPool(ctx context.Context, log *zap.Logger, groups []tokenGroup) models.CycleStatistics {
	var (
		mu    sync.Mutex
		stats models.CycleStatistics
		eg    errgroup.Group
	)
	eg.SetLimit(p.cfg.Workers)

	for _, g := range groups {
		if ctx.Err() != nil {
			log.Info("cycle cancelled before all tokens were scheduled")
			break
		}
		eg.Go(func() error {
			s := p.processGroup(ctx, log, g)
			mu.Lock()
			stats.Add(s)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return stats
}

// processGroup evaluates every alert of one token against a single snapshot
func (p *Processor) processGroup(ctx context.Context, log *zap.Logger, g tokenGroup) models.CycleStatistics {
	var stats models.CycleStatistics
	log = log.With(zap.String("token_id", g.tokenID))

	snap, ok := p.fetcher.Fetch(ctx, g.tokenID)
	if !ok {
		log.Info("market data unavailable, skipping token", zap.Int("alerts", len(g.alerts)))
		return stats
	}

	if rec, ok := p.store.(MarketDataRecorder); ok {
		if err := rec.UpdateMarketData(ctx, snap); err != nil {
			log.Warn("failed to cache market data", zap.Error(err))
		}
	}

	for _, alert := range g.alerts {
		stats.Processed++
		stats.Add(p.processAlert(ctx, log, alert, snap))
	}
	return stats
}

// processAlert handles one alert. A panic is contained to this alert and counted as an error.
func (p *Processor) processAlert(ctx context.Context, log *zap.Logger, alert *models.AlertConfig, snap *models.MarketSnapshot) (stats models.CycleStatistics) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("alert processing panicked", zap.Int("alert_id", alert.ID), zap.Any("panic", r))
			stats.Errors++
		}
	}()

	for _, t := range Evaluate(alert, snap) {
		if err := p.handleTrigger(ctx, log, t, &stats); err != nil {
			log.Error("trigger handling failed", zap.Int("alert_id", t.AlertID), zap.String("kind", string(t.Kind)), zap.Error(err))
			stats.Errors++
		}
	}
	return stats
}

func (p *Processor) handleTrigger(ctx context.Context, log *zap.Logger, t models.TriggerEvent, stats *models.CycleStatistics) error {
	kind := string(t.Kind)
	if p.cooldown.IsSuppressed(ctx, t.AlertID, t.Kind, p.now()) {
		metrics.SuppressedTotal.WithLabelValues(kind).Inc()
		log.Debug("trigger suppressed by cooldown", zap.Int("alert_id", t.AlertID), zap.String("kind", kind))
		return nil
	}

	metrics.TriggersTotal.WithLabelValues(kind).Inc()
	stats.Triggered++

	out := p.notifier.Dispatch(ctx, t)
	switch {
	case out.Any():
		p.cooldown.RecordFired(ctx, t.AlertID, t.Kind, p.now())
		stats.Sent++
	case out.Failed():
		log.Warn("all channels failed, trigger will retry next cycle", zap.Int("alert_id", t.AlertID), zap.String("kind", kind))
		stats.Errors++
	}

	if err := p.store.RecordNotification(ctx, t, out.DispatchResult); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

type tokenGroup struct {
	tokenID string
	alerts  []*models.AlertConfig
}

// groupByToken partitions enabled alerts by token id, keeping first-seen order
func groupByToken(alerts []*models.AlertConfig) []tokenGroup {
	var groups []tokenGroup
	index := make(map[string]int)
	for _, a := range alerts {
		if a == nil || !a.NotificationsEnabled || a.TokenID == "" {
			continue
		}
		i, ok := index[a.TokenID]
		if !ok {
			i = len(groups)
			index[a.TokenID] = i
			groups = append(groups, tokenGroup{tokenID: a.TokenID})
		}
		groups[i].alerts = append(groups[i].alerts, a)
	}
	return groups
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
