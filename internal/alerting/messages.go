package alerting

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/token-alert-system/internal/models"
	"github.com/trogers1052/token-alert-system/internal/notify"
)

// buildMessages returns the compact text used for push and SMS and the
// expanded text read out on voice calls.
func buildMessages(alert *models.AlertConfig, snap *models.MarketSnapshot, kind models.TriggerKind, current, threshold decimal.Decimal) (string, string) {
	sym := alert.DisplayName()

	switch kind {
	case models.TriggerMarketCapHigh:
		return fmt.Sprintf("%s market cap is %s, above your %s alert. Price: %s",
				sym, notify.FormatCompactUSD(current), notify.FormatCompactUSD(threshold), notify.FormatPrice(snap.Price)),
			fmt.Sprintf("Alert for %s. The market cap has risen above %s and is now %s.",
				sym, notify.FormatSpokenUSD(threshold), notify.FormatSpokenUSD(current))

	case models.TriggerMarketCapLow:
		return fmt.Sprintf("%s market cap is %s, below your %s alert. Price: %s",
				sym, notify.FormatCompactUSD(current), notify.FormatCompactUSD(threshold), notify.FormatPrice(snap.Price)),
			fmt.Sprintf("Alert for %s. The market cap has fallen below %s and is now %s.",
				sym, notify.FormatSpokenUSD(threshold), notify.FormatSpokenUSD(current))

	case models.TriggerPriceChange:
		verb := "pumped"
		if current.IsNegative() {
			verb = "dumped"
		}
		return fmt.Sprintf("%s %s %s in 24h (alert at %s). Price: %s",
				sym, verb, notify.FormatPercent(current), notify.FormatPercent(threshold), notify.FormatPrice(snap.Price)),
			fmt.Sprintf("Alert for %s. The price has %s %s in the last 24 hours and is now %s.",
				sym, verb, notify.FormatSpokenPercent(current), notify.FormatSpokenUSD(snap.Price))

	case models.TriggerVolume:
		side, spokenSide := "above", "risen above"
		if alert.Volume.Comparison == models.ComparisonLess {
			side, spokenSide = "below", "dropped below"
		}
		return fmt.Sprintf("%s 24h volume is %s, %s your %s alert",
				sym, notify.FormatCompactUSD(current), side, notify.FormatCompactUSD(threshold)),
			fmt.Sprintf("Alert for %s. The 24 hour trading volume has %s %s and is now %s.",
				sym, spokenSide, notify.FormatSpokenUSD(threshold), notify.FormatSpokenUSD(current))
	}

	return fmt.Sprintf("%s alert: %s", sym, kind), fmt.Sprintf("Alert for %s.", sym)
}

// TestMessages returns the texts sent by a manual test notification
func TestMessages(alert *models.AlertConfig) (string, string) {
	sym := alert.DisplayName()
	return fmt.Sprintf("Test notification for %s. Your alerts are working.", sym),
		fmt.Sprintf("This is a test call for your %s alerts. Your alerts are working.", sym)
}
