package alerting

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/token-alert-system/internal/models"
)

// Evaluate returns every trigger alert fires against snap, ordered market cap
// high, market cap low, price change, volume. It is pure: the same inputs always
// yield the same triggers. Thresholds that are zero or negative are not checked.
func Evaluate(alert *models.AlertConfig, snap *models.MarketSnapshot) []models.TriggerEvent {
	if alert == nil || snap == nil || !alert.NotificationsEnabled {
		return nil
	}

	var triggers []models.TriggerEvent

	if mc := alert.MarketCap; mc.Enabled {
		if mc.High.IsPositive() && snap.MarketCap.GreaterThan(mc.High) {
			triggers = append(triggers, newTrigger(alert, snap, models.TriggerMarketCapHigh, snap.MarketCap, mc.High))
		}
		if mc.Low.IsPositive() && snap.MarketCap.LessThan(mc.Low) {
			triggers = append(triggers, newTrigger(alert, snap, models.TriggerMarketCapLow, snap.MarketCap, mc.Low))
		}
	}

	if pc := alert.PriceChange; pc.Enabled && pc.Threshold.IsPositive() {
		if priceChangeHit(pc.Direction, snap.PriceChange24h, pc.Threshold) {
			triggers = append(triggers, newTrigger(alert, snap, models.TriggerPriceChange, snap.PriceChange24h, pc.Threshold))
		}
	}

	if v := alert.Volume; v.Enabled && v.Threshold.IsPositive() {
		if volumeHit(v.Comparison, snap.Volume24h, v.Threshold) {
			triggers = append(triggers, newTrigger(alert, snap, models.TriggerVolume, snap.Volume24h, v.Threshold))
		}
	}

	return triggers
}

// priceChangeHit treats an unknown direction as both
func priceChangeHit(dir models.Direction, change, threshold decimal.Decimal) bool {
	switch dir {
	case models.DirectionUp:
		return change.GreaterThanOrEqual(threshold)
	case models.DirectionDown:
		return change.IsNegative() && change.Abs().GreaterThanOrEqual(threshold)
	default:
		return change.Abs().GreaterThanOrEqual(threshold)
	}
}

// volumeHit treats an unknown comparison as greater
func volumeHit(cmp models.Comparison, volume, threshold decimal.Decimal) bool {
	if cmp == models.ComparisonLess {
		return volume.LessThan(threshold)
	}
	return volume.GreaterThan(threshold)
}

func newTrigger(alert *models.AlertConfig, snap *models.MarketSnapshot, kind models.TriggerKind, current, threshold decimal.Decimal) models.TriggerEvent {
	msg, spoken := buildMessages(alert, snap, kind, current, threshold)
	return models.TriggerEvent{
		AlertID:       alert.ID,
		UserID:        alert.UserID,
		TokenID:       alert.TokenID,
		Symbol:        alert.DisplayName(),
		Kind:          kind,
		Message:       msg,
		SpokenMessage: spoken,
		CurrentValue:  current,
		Threshold:     threshold,
		Channels:      alert.Channels,
		PhoneNumber:   alert.PhoneNumber,
	}
}
