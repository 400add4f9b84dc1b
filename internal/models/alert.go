package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price change direction constants
const (
	DirectionBoth Direction = "both"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Volume comparison constants
const (
	ComparisonGreater Comparison = "greater"
	ComparisonLess    Comparison = "less"
)

// Direction selects which side of a 24h price move fires a price change alert
type Direction string

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	switch d {
	case DirectionBoth, DirectionUp, DirectionDown:
		return true
	}
	return false
}

// Comparison selects how 24h volume is compared with its threshold
type Comparison string

// Valid reports whether c is a known comparison
func (c Comparison) Valid() bool {
	return c == ComparisonGreater || c == ComparisonLess
}

// MarketCapSettings triggers when market cap leaves the [Low, High] band.
// A zero bound is not checked.
type MarketCapSettings struct {
	Enabled bool            `json:"enabled"`
	High    decimal.Decimal `json:"high"`
	Low     decimal.Decimal `json:"low"`
}

// PriceChangeSettings triggers on a 24h percent move of at least Threshold
type PriceChangeSettings struct {
	Enabled   bool            `json:"enabled"`
	Threshold decimal.Decimal `json:"threshold"`
	Direction Direction       `json:"direction"`
}

// VolumeSettings triggers when 24h volume crosses Threshold
type VolumeSettings struct {
	Enabled    bool            `json:"enabled"`
	Threshold  decimal.Decimal `json:"threshold"`
	Comparison Comparison      `json:"comparison"`
}

// Channels holds the per-channel delivery flags of an alert
type Channels struct {
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
	Calls bool `json:"calls"`
}

// AlertConfig is one user's threshold subscription on one token
type AlertConfig struct {
	ID                   int                 `json:"id"`
	UserID               string              `json:"user_id"`
	TokenID              string              `json:"token_id"`
	Symbol               string              `json:"symbol"`
	Name                 string              `json:"name,omitempty"`
	NotificationsEnabled bool                `json:"notifications_enabled"`
	Channels             Channels            `json:"channels"`
	PhoneNumber          string              `json:"phone_number,omitempty"`
	MarketCap            MarketCapSettings   `json:"market_cap"`
	PriceChange          PriceChangeSettings `json:"price_change"`
	Volume               VolumeSettings      `json:"volume"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// DisplayName returns the symbol, falling back to the name and then the token id
func (a *AlertConfig) DisplayName() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	if a.Name != "" {
		return a.Name
	}
	return a.TokenID
}
