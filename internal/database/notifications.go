package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/token-alert-system/internal/models"
)

// RecordNotification logs the dispatch outcome of a trigger
func (db *DB) RecordNotification(ctx context.Context, t models.TriggerEvent, result models.DispatchResult) error {
	query := `
		INSERT INTO notification_history (
			alert_id, user_id, token_id, trigger_kind, message,
			current_value, threshold, push_sent, sms_sent, voice_sent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := db.conn.ExecContext(ctx, query,
		t.AlertID, t.UserID, t.TokenID, t.Kind, t.Message,
		t.CurrentValue, t.Threshold, result.PushSent, result.SMSSent, result.VoiceSent, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record notification for alert %d: %w", t.AlertID, err)
	}
	return nil
}

// GetNotificationHistory retrieves the most recent notifications for an alert
func (db *DB) GetNotificationHistory(ctx context.Context, alertID, limit int) ([]*models.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, alert_id, user_id, token_id, trigger_kind, message,
		       current_value, threshold, push_sent, sms_sent, voice_sent, created_at
		FROM notification_history
		WHERE alert_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, alertID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification history: %w", err)
	}
	defer rows.Close()

	var history []*models.NotificationRecord
	for rows.Next() {
		var r models.NotificationRecord
		var kind string
		var currentValue, threshold sql.NullString

		err := rows.Scan(
			&r.ID, &r.AlertID, &r.UserID, &r.TokenID, &kind, &r.Message,
			&currentValue, &threshold, &r.PushSent, &r.SMSSent, &r.VoiceSent, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification history: %w", err)
		}

		r.Kind = models.TriggerKind(kind)
		r.CurrentValue = parseDecimal(currentValue)
		r.Threshold = parseDecimal(threshold)
		history = append(history, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification history: %w", err)
	}

	return history, nil
}

// DeleteNotificationHistoryOlderThan removes history recorded before date
func (db *DB) DeleteNotificationHistoryOlderThan(ctx context.Context, date time.Time) (int64, error) {
	query := `DELETE FROM notification_history WHERE created_at < $1`
	result, err := db.conn.ExecContext(ctx, query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notification history: %w", err)
	}
	return result.RowsAffected()
}
