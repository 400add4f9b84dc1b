package kafka

import (
	"context"

	"github.com/trogers1052/token-alert-system/internal/alerting"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// TriggerPublisher publishes dispatched triggers
type TriggerPublisher interface {
	PublishTriggerDispatched(ctx context.Context, t models.TriggerEvent, result models.DispatchResult) error
}

// RecordingStore wraps an AlertStore and publishes every recorded notification.
// Publish failures are logged and never fail the record.
type RecordingStore struct {
	alerting.AlertStore
	publisher TriggerPublisher
	logger    *zap.Logger
}

// NewRecordingStore creates a RecordingStore around store
func NewRecordingStore(store alerting.AlertStore, publisher TriggerPublisher, logger *zap.Logger) *RecordingStore {
	return &RecordingStore{AlertStore: store, publisher: publisher, logger: logger}
}

// RecordNotification records the outcome in the wrapped store, then publishes it
func (s *RecordingStore) RecordNotification(ctx context.Context, t models.TriggerEvent, result models.DispatchResult) error {
	err := s.AlertStore.RecordNotification(ctx, t, result)

	if perr := s.publisher.PublishTriggerDispatched(ctx, t, result); perr != nil {
		s.logger.Warn("failed to publish trigger event",
			zap.Int("alert_id", t.AlertID),
			zap.String("kind", string(t.Kind)),
			zap.Error(perr),
		)
	}
	return err
}

// UpdateMarketData forwards to the wrapped store when it caches market data
func (s *RecordingStore) UpdateMarketData(ctx context.Context, snap *models.MarketSnapshot) error {
	if rec, ok := s.AlertStore.(alerting.MarketDataRecorder); ok {
		return rec.UpdateMarketData(ctx, snap)
	}
	return nil
}
