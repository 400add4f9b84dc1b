package alerting

import (
	"context"
	"errors"
	"sync"

	"github.com/trogers1052/token-alert-system/internal/models"
	"github.com/trogers1052/token-alert-system/internal/notify"
)

// fakeStore is an in-memory AlertStore
type fakeStore struct {
	mu         sync.Mutex
	alerts     []*models.AlertConfig
	listErr    error
	recordErr  error
	records    []recorded
	marketData map[string]*models.MarketSnapshot
}

type recorded struct {
	trigger models.TriggerEvent
	result  models.DispatchResult
}

func (s *fakeStore) ListEnabledAlerts(ctx context.Context) ([]*models.AlertConfig, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.AlertConfig
	for _, a := range s.alerts {
		if a.NotificationsEnabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) RecordNotification(ctx context.Context, t models.TriggerEvent, r models.DispatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recorded{trigger: t, result: r})
	return s.recordErr
}

func (s *fakeStore) UpdateMarketData(ctx context.Context, snap *models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marketData == nil {
		s.marketData = make(map[string]*models.MarketSnapshot)
	}
	s.marketData[snap.TokenID] = snap
	return nil
}

// fakeFetcher serves fixed snapshots and counts calls per token
type fakeFetcher struct {
	mu        sync.Mutex
	snapshots map[string]*models.MarketSnapshot
	calls     map[string]int
	order     []string
}

func newFakeFetcher(snaps ...*models.MarketSnapshot) *fakeFetcher {
	f := &fakeFetcher{snapshots: make(map[string]*models.MarketSnapshot), calls: make(map[string]int)}
	for _, s := range snaps {
		f.snapshots[s.TokenID] = s
	}
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, tokenID string) (*models.MarketSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[tokenID]++
	f.order = append(f.order, tokenID)
	s, ok := f.snapshots[tokenID]
	return s, ok
}

func (f *fakeFetcher) callCount(tokenID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tokenID]
}

// fakeNotifier delivers on the enabled channels unless told to fail them
type fakeNotifier struct {
	mu       sync.Mutex
	failPush bool
	failSMS  bool
	failAll  bool
	panics   bool
	sent     []models.TriggerEvent
}

func (n *fakeNotifier) Dispatch(ctx context.Context, t models.TriggerEvent) notify.Outcome {
	if n.panics {
		panic("boom")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, t)

	var out notify.Outcome
	if t.Channels.Push {
		out.Attempted++
		out.PushSent = !n.failAll && !n.failPush
	}
	if t.Channels.SMS && t.PhoneNumber != "" {
		out.Attempted++
		out.SMSSent = !n.failAll && !n.failSMS
	}
	if t.Channels.Calls && t.PhoneNumber != "" {
		out.Attempted++
		out.VoiceSent = !n.failAll
	}
	return out
}

func (n *fakeNotifier) dispatched() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var errStore = errors.New("connection refused")
