package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/token-alert-system/internal/alerting"
	"github.com/trogers1052/token-alert-system/internal/api"
	"github.com/trogers1052/token-alert-system/internal/config"
	"github.com/trogers1052/token-alert-system/internal/database"
	"github.com/trogers1052/token-alert-system/internal/kafka"
	"github.com/trogers1052/token-alert-system/internal/logging"
	"github.com/trogers1052/token-alert-system/internal/market"
	"github.com/trogers1052/token-alert-system/internal/notify"
	"github.com/trogers1052/token-alert-system/internal/tracing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	historyPruneInterval = 24 * time.Hour
	marketLimiterKey     = "token-alerts:market-api"
)

// App wires the alert engine, its API and its background workers
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *database.DB
	redis     *redis.Client
	scheduler *alerting.Scheduler
	sweeper   *alerting.MemoryCooldown
	consumer  *kafka.Consumer
	producer  *kafka.Producer
	server    *http.Server
	tracing   tracing.ShutdownFunc
}

// New builds every component from cfg. Nothing runs until Run.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Level, logging.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	}, a.logger)
	if err != nil {
		return err
	}
	a.tracing = shutdownTracing

	a.db, err = database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	if err := a.db.Migrate(cfg.Database.MigrationsPath); err != nil {
		return err
	}
	a.logger.Info("database ready", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.DBName))

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var cooldown alerting.CooldownTracker
	if cfg.Monitor.CooldownBackend == config.CooldownRedis {
		cooldown = alerting.NewRedisCooldown(a.redis, cfg.Monitor.Cooldown, "", a.logger)
	} else {
		a.sweeper = alerting.NewMemoryCooldown(cfg.Monitor.Cooldown, a.logger)
		cooldown = a.sweeper
	}
	a.logger.Info("cooldown configured",
		zap.String("backend", cfg.Monitor.CooldownBackend),
		zap.Duration("window", cfg.Monitor.Cooldown),
	)

	fetcher := market.NewFetcher(
		market.NewClient(cfg.Market.BaseURL, cfg.Market.Timeout, a.logger),
		a.newLimiter(),
		a.logger,
	)

	sms, voice := a.newTwilio()
	dispatcher := notify.NewDispatcher(a.newPushSender(), sms, voice, cfg.Monitor.ChannelTimeout, a.logger)

	var store alerting.AlertStore = a.db
	if cfg.Kafka.Enabled() {
		a.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		store = kafka.NewRecordingStore(a.db, a.producer, a.logger)
	}

	processor := alerting.NewProcessor(store, fetcher, dispatcher, cooldown, alerting.ProcessorConfig{
		GroupDelay: cfg.Monitor.GroupDelay,
		Workers:    cfg.Monitor.Workers,
	}, a.logger)
	a.scheduler = alerting.NewScheduler(processor, cfg.Monitor.Interval, a.logger)
	service := alerting.NewService(a.scheduler, a.db, dispatcher, a.logger)

	if cfg.Kafka.Enabled() {
		a.consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandTopic, cfg.Kafka.GroupID, service, a.logger)
	}

	handler := api.NewHandler(a.db, service, a.logger)
	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// newLimiter spaces upstream calls. Sequential cycles already pause between
// groups, so the local limiter only spaces calls when workers run in parallel.
func (a *App) newLimiter() market.Limiter {
	if a.cfg.Market.SharedLimiter {
		return market.NewRedisLimiter(a.redis, marketLimiterKey, a.cfg.Monitor.GroupDelay, a.logger)
	}
	if a.cfg.Monitor.Workers > 1 {
		return market.NewLocalLimiter(a.cfg.Monitor.GroupDelay)
	}
	return market.NewLocalLimiter(0)
}

func (a *App) newPushSender() notify.PushSender {
	c := a.cfg.Push
	push, err := notify.NewPushClient(notify.PushConfig{
		URL:         c.URL,
		APIKey:      c.APIKey,
		AppID:       c.AppID,
		Title:       c.Title,
		Timeout:     c.Timeout,
		MaxAttempts: c.MaxAttempts,
		RetryDelay:  c.RetryDelay,
	}, a.logger)
	if err != nil {
		a.logger.Warn("push channel disabled", zap.Error(err))
		return nil
	}
	return push
}

// newTwilio returns nil senders when Twilio is not configured; the dispatcher
// then reports the SMS and voice channels as failed.
func (a *App) newTwilio() (notify.SMSSender, notify.VoiceSender) {
	c := a.cfg.Twilio
	t, err := notify.NewTwilio(notify.TwilioConfig{
		AccountSID:  c.AccountSID,
		AuthToken:   c.AuthToken,
		FromNumber:  c.FromNumber,
		Voice:       c.Voice,
		MaxAttempts: c.MaxAttempts,
		RetryDelay:  c.RetryDelay,
	}, a.logger)
	if err != nil {
		a.logger.Warn("sms and voice channels disabled", zap.Error(err))
		return nil, nil
	}
	return t, t
}

// Run starts the scheduler, background workers and HTTP server, and blocks
// until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("token alert monitor starting", zap.String("addr", a.server.Addr))

	if err := a.scheduler.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Monitor.ShutdownGrace)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.sweeper != nil {
		g.Go(func() error {
			a.sweeper.RunSweeper(gctx, a.cfg.Monitor.CooldownSweep, a.cfg.Monitor.SweepMaxAge())
			return nil
		})
	}

	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Start(gctx)
		})
	}

	if a.cfg.Monitor.HistoryRetention > 0 {
		g.Go(func() error {
			a.pruneHistory(gctx)
			return nil
		})
	}

	return g.Wait()
}

func (a *App) pruneHistory(ctx context.Context) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			deleted, err := a.db.DeleteNotificationHistoryOlderThan(ctx, now.Add(-a.cfg.Monitor.HistoryRetention))
			if err != nil {
				a.logger.Error("failed to prune notification history", zap.Error(err))
				continue
			}
			a.logger.Info("pruned notification history", zap.Int64("deleted", deleted))
		}
	}
}

// Shutdown stops the scheduler, letting an in-flight cycle finish within the
// grace period, then releases every connection.
func (a *App) Shutdown() {
	a.logger.Info("token alert monitor shutting down")

	if a.scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Monitor.ShutdownGrace)
		if _, err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Warn("in-flight cycle did not finish within grace period", zap.Error(err))
		}
		cancel()
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("failed to close kafka consumer", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.tracing(ctx); err != nil {
			a.logger.Warn("failed to flush traces", zap.Error(err))
		}
		cancel()
	}
	_ = a.logger.Sync()
}
