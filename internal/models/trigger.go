package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trigger kind constants, in evaluation order
const (
	TriggerMarketCapHigh TriggerKind = "market_cap_high"
	TriggerMarketCapLow  TriggerKind = "market_cap_low"
	TriggerPriceChange   TriggerKind = "price_change"
	TriggerVolume        TriggerKind = "volume"

	// TriggerTest marks a manual test notification; it is never evaluated or recorded
	TriggerTest TriggerKind = "test"
)

// Notification channel constants
const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
)

// TriggerKind identifies which threshold an event crossed
type TriggerKind string

// Channel identifies a notification delivery mechanism
type Channel string

// TriggerEvent is a detected threshold crossing for one alert
type TriggerEvent struct {
	AlertID       int             `json:"alert_id"`
	UserID        string          `json:"user_id"`
	TokenID       string          `json:"token_id"`
	Symbol        string          `json:"symbol"`
	Kind          TriggerKind     `json:"kind"`
	Message       string          `json:"message"`
	SpokenMessage string          `json:"spoken_message"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	Threshold     decimal.Decimal `json:"threshold"`
	Channels      Channels        `json:"channels"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
}

// DispatchResult reports which channels delivered a trigger
type DispatchResult struct {
	PushSent  bool `json:"push"`
	SMSSent   bool `json:"sms"`
	VoiceSent bool `json:"voice"`
}

// Any reports whether at least one channel delivered
func (r DispatchResult) Any() bool {
	return r.PushSent || r.SMSSent || r.VoiceSent
}

// NotificationRecord is a logged dispatch outcome
type NotificationRecord struct {
	ID           int             `json:"id"`
	AlertID      int             `json:"alert_id"`
	UserID       string          `json:"user_id"`
	TokenID      string          `json:"token_id"`
	Kind         TriggerKind     `json:"kind"`
	Message      string          `json:"message"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Threshold    decimal.Decimal `json:"threshold"`
	PushSent     bool            `json:"push_sent"`
	SMSSent      bool            `json:"sms_sent"`
	VoiceSent    bool            `json:"voice_sent"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CycleStatistics are the counters of one processing cycle
type CycleStatistics struct {
	Processed int `json:"processed"`
	Triggered int `json:"triggered"`
	Sent      int `json:"sent"`
	Errors    int `json:"errors"`
}

// Add accumulates other into s
func (s *CycleStatistics) Add(other CycleStatistics) {
	s.Processed += other.Processed
	s.Triggered += other.Triggered
	s.Sent += other.Sent
	s.Errors += other.Errors
}
