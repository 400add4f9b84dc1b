package alerting

import (
	"context"
	"fmt"

	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// AlertLookup loads a single alert configuration
type AlertLookup interface {
	GetAlertByID(ctx context.Context, id int) (*models.AlertConfig, error)
}

// Service backs the manual trigger operations: process now and send test notification
type Service struct {
	scheduler *Scheduler
	alerts    AlertLookup
	notifier  Notifier
	logger    *zap.Logger
}

// NewService creates a Service
func NewService(scheduler *Scheduler, alerts AlertLookup, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{scheduler: scheduler, alerts: alerts, notifier: notifier, logger: logger}
}

// ProcessNow runs one cycle, after any cycle already in progress, and returns its statistics
func (s *Service) ProcessNow(ctx context.Context) (models.CycleStatistics, error) {
	return s.scheduler.RunOnce(ctx)
}

// SendTestNotification sends a test message for alertID on the requested channels.
// It skips evaluation and never reads or arms cooldowns.
func (s *Service) SendTestNotification(ctx context.Context, alertID int, channels models.Channels) (models.DispatchResult, error) {
	alert, err := s.alerts.GetAlertByID(ctx, alertID)
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("failed to load alert for test: %w", err)
	}

	msg, spoken := TestMessages(alert)
	out := s.notifier.Dispatch(ctx, models.TriggerEvent{
		AlertID:       alert.ID,
		UserID:        alert.UserID,
		TokenID:       alert.TokenID,
		Symbol:        alert.DisplayName(),
		Kind:          models.TriggerTest,
		Message:       msg,
		SpokenMessage: spoken,
		Channels:      channels,
		PhoneNumber:   alert.PhoneNumber,
	})

	s.logger.Info("test notification sent",
		zap.Int("alert_id", alertID),
		zap.Bool("push", out.PushSent),
		zap.Bool("sms", out.SMSSent),
		zap.Bool("voice", out.VoiceSent),
	)
	return out.DispatchResult, nil
}
