package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// DefaultInterval is the time between scheduled cycles
const DefaultInterval = 5 * time.Second

var (
	// ErrCycleInProgress is returned by TryRunOnce when a cycle is already running
	ErrCycleInProgress = errors.New("alert cycle already in progress")
	// ErrSchedulerStopped is returned once Stop has been called
	ErrSchedulerStopped = errors.New("scheduler stopped")
	// ErrSchedulerRunning is returned by Start on a running scheduler
	ErrSchedulerRunning = errors.New("scheduler already running")
)

// CycleRunner runs a single processing cycle
type CycleRunner interface {
	Run(ctx context.Context) models.CycleStatistics
}

// Totals is the running aggregate across every cycle since start
type Totals struct {
	models.CycleStatistics
	Cycles int `json:"cycles"`
}

// Scheduler runs cycles on a fixed interval. At most one cycle runs at a time:
// a tick that finds a cycle running is dropped, while RunOnce waits its turn.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   *zap.Logger

	// sem holds a token while a cycle runs
	sem chan struct{}

	// cycles run on baseCtx so a stop request lets them finish
	baseCtx    context.Context
	baseCancel context.CancelFunc
	inflight   sync.WaitGroup

	mu       sync.Mutex
	totals   Totals
	started  bool
	stopped  bool
	stopCh   chan struct{}
	loopDone chan struct{}
}

// NewScheduler creates a Scheduler; a zero interval selects DefaultInterval
func NewScheduler(runner CycleRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		logger:     logger,
		sem:        make(chan struct{}, 1),
		baseCtx:    baseCtx,
		baseCancel: cancel,
		stopCh:     make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
}

// Start runs a first cycle immediately and then one per interval until Stop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return ErrSchedulerRunning
	}
	s.started = true

	go s.loop()
	s.logger.Info("alert scheduler started", zap.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) loop() {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick starts a cycle in the background unless one is running
func (s *Scheduler) tick() {
	select {
	case s.sem <- struct{}{}:
	default:
		s.logger.Debug("previous cycle still running, skipping tick")
		return
	}

	if !s.track() {
		<-s.sem
		return
	}
	go func() {
		defer s.inflight.Done()
		defer func() { <-s.sem }()
		s.run()
	}()
}

// RunOnce waits for any running cycle to finish, then runs one and returns its statistics
func (s *Scheduler) RunOnce(ctx context.Context) (models.CycleStatistics, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return models.CycleStatistics{}, ctx.Err()
	}
	defer func() { <-s.sem }()

	if !s.track() {
		return models.CycleStatistics{}, ErrSchedulerStopped
	}
	defer s.inflight.Done()
	return s.run(), nil
}

// TryRunOnce runs a cycle only if none is running
func (s *Scheduler) TryRunOnce() (models.CycleStatistics, error) {
	select {
	case s.sem <- struct{}{}:
	default:
		return models.CycleStatistics{}, ErrCycleInProgress
	}
	defer func() { <-s.sem }()

	if !s.track() {
		return models.CycleStatistics{}, ErrSchedulerStopped
	}
	defer s.inflight.Done()
	return s.run(), nil
}

// track registers an in-flight cycle, failing once the scheduler is stopped
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Scheduler) run() models.CycleStatistics {
	stats := s.runner.Run(s.baseCtx)

	s.mu.Lock()
	s.totals.Add(stats)
	s.totals.Cycles++
	s.mu.Unlock()
	return stats
}

// Stats returns the aggregate of every completed cycle
func (s *Scheduler) Stats() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Stop halts scheduling and waits for the in-flight cycle. If ctx expires
// first the cycle is cancelled and ctx's error returned alongside the totals.
func (s *Scheduler) Stop(ctx context.Context) (Totals, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return s.Stats(), nil
	}
	s.stopped = true
	started := s.started
	close(s.stopCh)
	s.mu.Unlock()

	if started {
		<-s.loopDone
	}

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		s.logger.Warn("shutdown grace expired, cancelling in-flight cycle")
		s.baseCancel()
		<-drained
	}
	s.baseCancel()

	totals := s.Stats()
	s.logger.Info("alert scheduler stopped",
		zap.Int("cycles", totals.Cycles),
		zap.Int("processed", totals.Processed),
		zap.Int("triggered", totals.Triggered),
		zap.Int("sent", totals.Sent),
		zap.Int("errors", totals.Errors),
	)
	return totals, err
}
