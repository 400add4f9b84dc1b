package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is a point-in-time read of a token's market metrics
type MarketSnapshot struct {
	TokenID        string          `json:"token_id"`
	Price          decimal.Decimal `json:"price"`
	PriceChange24h decimal.Decimal `json:"price_change_24h"`
	MarketCap      decimal.Decimal `json:"market_cap"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
	Liquidity      decimal.Decimal `json:"liquidity"`
	PairAddress    string          `json:"pair_address,omitempty"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

// TriggerEventMessage is the Kafka event published after a trigger is dispatched
type TriggerEventMessage struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Trigger   TriggerEvent   `json:"trigger"`
	Result    DispatchResult `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// CommandMessage is a Kafka command addressed to the alert engine
type CommandMessage struct {
	EventType string    `json:"event_type"`
	AlertID   int       `json:"alert_id,omitempty"`
	Channels  *Channels `json:"channels,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
