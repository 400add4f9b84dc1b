package notify

import (
	"context"
	"errors"
)

var (
	ErrInvalidPhone  = errors.New("invalid E.164 phone number")
	ErrNotConfigured = errors.New("channel provider not configured")
)

// PushSender delivers a push notification to every device of a user
type PushSender interface {
	SendPush(ctx context.Context, userID, message string) error
}

// SMSSender delivers a text message to an E.164 phone number
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// VoiceSender places a call that reads spokenMessage to an E.164 phone number
type VoiceSender interface {
	SendVoice(ctx context.Context, phone, spokenMessage string) error
}
