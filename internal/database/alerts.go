package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/token-alert-system/internal/models"
)

const alertColumns = `
	id, user_id, token_id, symbol, name, notifications_enabled,
	push_enabled, sms_enabled, calls_enabled, phone_number,
	market_cap_enabled, market_cap_high, market_cap_low,
	price_change_enabled, price_change_threshold, price_change_direction,
	volume_enabled, volume_threshold, volume_comparison,
	created_at, updated_at`

// CreateAlert inserts a new token alert
func (db *DB) CreateAlert(ctx context.Context, a *models.AlertConfig) error {
	query := `
		INSERT INTO token_alerts (
			user_id, token_id, symbol, name, notifications_enabled,
			push_enabled, sms_enabled, calls_enabled, phone_number,
			market_cap_enabled, market_cap_high, market_cap_low,
			price_change_enabled, price_change_threshold, price_change_direction,
			volume_enabled, volume_threshold, volume_comparison,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`
	normalizeAlert(a)
	now := time.Now()
	err := db.conn.QueryRowContext(ctx, query,
		a.UserID, a.TokenID, nullString(a.Symbol), nullString(a.Name), a.NotificationsEnabled,
		a.Channels.Push, a.Channels.SMS, a.Channels.Calls, nullString(a.PhoneNumber),
		a.MarketCap.Enabled, a.MarketCap.High, a.MarketCap.Low,
		a.PriceChange.Enabled, a.PriceChange.Threshold, a.PriceChange.Direction,
		a.Volume.Enabled, a.Volume.Threshold, a.Volume.Comparison,
		now, now,
	).Scan(&a.ID)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAlertByID retrieves an alert by ID. It returns ErrAlertNotFound when none exists.
func (db *DB) GetAlertByID(ctx context.Context, id int) (*models.AlertConfig, error) {
	query := `SELECT` + alertColumns + `
		FROM token_alerts
		WHERE id = $1
	`
	a, err := scanAlert(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// ListEnabledAlerts retrieves every alert with notifications enabled, ordered by token then id
func (db *DB) ListEnabledAlerts(ctx context.Context) ([]*models.AlertConfig, error) {
	query := `SELECT` + alertColumns + `
		FROM token_alerts
		WHERE notifications_enabled = true
		ORDER BY token_id, id
	`
	return db.scanAlerts(db.conn.QueryContext(ctx, query))
}

// ListAlertsByUser retrieves all alerts owned by userID
func (db *DB) ListAlertsByUser(ctx context.Context, userID string) ([]*models.AlertConfig, error) {
	query := `SELECT` + alertColumns + `
		FROM token_alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return db.scanAlerts(db.conn.QueryContext(ctx, query, userID))
}

func (db *DB) scanAlerts(rows *sql.Rows, err error) ([]*models.AlertConfig, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.AlertConfig
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.AlertConfig, error) {
	var a models.AlertConfig
	var symbol, name, phone sql.NullString
	var capHigh, capLow, priceThreshold, volumeThreshold sql.NullString
	var direction, comparison string

	err := row.Scan(
		&a.ID, &a.UserID, &a.TokenID, &symbol, &name, &a.NotificationsEnabled,
		&a.Channels.Push, &a.Channels.SMS, &a.Channels.Calls, &phone,
		&a.MarketCap.Enabled, &capHigh, &capLow,
		&a.PriceChange.Enabled, &priceThreshold, &direction,
		&a.Volume.Enabled, &volumeThreshold, &comparison,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Symbol = symbol.String
	a.Name = name.String
	a.PhoneNumber = phone.String
	a.MarketCap.High = parseDecimal(capHigh)
	a.MarketCap.Low = parseDecimal(capLow)
	a.PriceChange.Threshold = parseDecimal(priceThreshold)
	a.PriceChange.Direction = models.Direction(direction)
	a.Volume.Threshold = parseDecimal(volumeThreshold)
	a.Volume.Comparison = models.Comparison(comparison)

	return &a, nil
}

// UpdateAlert updates an existing alert's settings
func (db *DB) UpdateAlert(ctx context.Context, a *models.AlertConfig) error {
	query := `
		UPDATE token_alerts SET
			symbol = $2, name = $3, notifications_enabled = $4,
			push_enabled = $5, sms_enabled = $6, calls_enabled = $7, phone_number = $8,
			market_cap_enabled = $9, market_cap_high = $10, market_cap_low = $11,
			price_change_enabled = $12, price_change_threshold = $13, price_change_direction = $14,
			volume_enabled = $15, volume_threshold = $16, volume_comparison = $17,
			updated_at = $18
		WHERE id = $1
	`
	normalizeAlert(a)
	a.UpdatedAt = time.Now()
	result, err := db.conn.ExecContext(ctx, query,
		a.ID, nullString(a.Symbol), nullString(a.Name), a.NotificationsEnabled,
		a.Channels.Push, a.Channels.SMS, a.Channels.Calls, nullString(a.PhoneNumber),
		a.MarketCap.Enabled, a.MarketCap.High, a.MarketCap.Low,
		a.PriceChange.Enabled, a.PriceChange.Threshold, a.PriceChange.Direction,
		a.Volume.Enabled, a.Volume.Threshold, a.Volume.Comparison,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrAlertNotFound, a.ID)
	}
	return nil
}

// DeleteAlert removes an alert and its notification history
func (db *DB) DeleteAlert(ctx context.Context, id int) error {
	query := `DELETE FROM token_alerts WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	return nil
}

// UpdateMarketData caches the latest snapshot on every alert for the token, for display only
func (db *DB) UpdateMarketData(ctx context.Context, snap *models.MarketSnapshot) error {
	query := `
		UPDATE token_alerts SET
			current_price = $2,
			current_market_cap = $3,
			current_volume_24h = $4,
			current_price_change_24h = $5,
			market_data_updated_at = $6
		WHERE token_id = $1
	`
	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, query,
		snap.TokenID, snap.Price, snap.MarketCap, snap.Volume24h, snap.PriceChange24h, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update market data for %s: %w", snap.TokenID, err)
	}
	return nil
}

// GetMarketData returns the cached snapshot for tokenID, or nil if none was stored
func (db *DB) GetMarketData(ctx context.Context, tokenID string) (*models.MarketSnapshot, error) {
	query := `
		SELECT current_price, current_market_cap, current_volume_24h,
		       current_price_change_24h, market_data_updated_at
		FROM token_alerts
		WHERE token_id = $1 AND market_data_updated_at IS NOT NULL
		ORDER BY market_data_updated_at DESC
		LIMIT 1
	`
	var price, marketCap, volume, change sql.NullString
	var updatedAt sql.NullTime

	err := db.conn.QueryRowContext(ctx, query, tokenID).Scan(&price, &marketCap, &volume, &change, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market data: %w", err)
	}

	return &models.MarketSnapshot{
		TokenID:        tokenID,
		Price:          parseDecimal(price),
		MarketCap:      parseDecimal(marketCap),
		Volume24h:      parseDecimal(volume),
		PriceChange24h: parseDecimal(change),
		FetchedAt:      updatedAt.Time,
	}, nil
}

// normalizeAlert fills enum defaults so rows satisfy the table constraints
func normalizeAlert(a *models.AlertConfig) {
	if !a.PriceChange.Direction.Valid() {
		a.PriceChange.Direction = models.DirectionBoth
	}
	if !a.Volume.Comparison.Valid() {
		a.Volume.Comparison = models.ComparisonGreater
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDecimal(s sql.NullString) decimal.Decimal {
	if !s.Valid {
		return decimal.Zero
	}
	d, _ := decimal.NewFromString(s.String)
	return d
}
