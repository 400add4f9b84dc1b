package notify

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// twilioAPI is the subset of the Twilio REST API used for SMS and calls
type twilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioConfig holds Twilio account credentials and sender identity
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	Voice       string
	MaxAttempts int
	RetryDelay  time.Duration
}

// Twilio sends SMS and voice calls through the Twilio REST API
type Twilio struct {
	api    twilioAPI
	cfg    TwilioConfig
	logger *zap.Logger
}

// NewTwilio creates a Twilio sender. It returns ErrNotConfigured when credentials are missing.
func NewTwilio(cfg TwilioConfig, logger *zap.Logger) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio: %w: account sid, auth token and from number are required", ErrNotConfigured)
	}
	if err := ValidatePhone(cfg.FromNumber); err != nil {
		return nil, fmt.Errorf("twilio from number: %w", err)
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilio(rest.Api, cfg, logger), nil
}

func newTwilio(api twilioAPI, cfg TwilioConfig, logger *zap.Logger) *Twilio {
	if cfg.Voice == "" {
		cfg.Voice = "alice"
	}
	return &Twilio{api: api, cfg: cfg, logger: logger}
}

// SendSMS sends message as a text to phone
func (t *Twilio) SendSMS(ctx context.Context, phone, message string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(t.cfg.FromNumber)
	params.SetBody(message)

	return retry(ctx, t.logger, "twilio sms", t.cfg.MaxAttempts, t.cfg.RetryDelay, func() error {
		resp, err := t.api.CreateMessage(params)
		if err != nil {
			return retryableTwilio(fmt.Errorf("failed to send SMS: %w", err))
		}
		if resp != nil && resp.Sid != nil {
			t.logger.Debug("twilio sms queued", zap.String("sid", *resp.Sid))
		}
		return nil
	})
}

// SendVoice places a call to phone that reads spokenMessage twice
func (t *Twilio) SendVoice(ctx context.Context, phone, spokenMessage string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	twiml, err := buildTwiML(t.cfg.Voice, spokenMessage)
	if err != nil {
		return err
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(phone)
	params.SetFrom(t.cfg.FromNumber)
	params.SetTwiml(twiml)

	return retry(ctx, t.logger, "twilio call", t.cfg.MaxAttempts, t.cfg.RetryDelay, func() error {
		resp, err := t.api.CreateCall(params)
		if err != nil {
			return retryableTwilio(fmt.Errorf("failed to place call: %w", err))
		}
		if resp != nil && resp.Sid != nil {
			t.logger.Debug("twilio call queued", zap.String("sid", *resp.Sid))
		}
		return nil
	})
}

// retryableTwilio marks err permanent unless Twilio clearly did not accept the
// request: a connection that never opened, throttling, or a 5xx response.
// Timeouts are not retried since the message or call may already be queued.
func retryableTwilio(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		if restErr.Status == http.StatusTooManyRequests || restErr.Status >= http.StatusInternalServerError {
			return err
		}
		return permanent(err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return err
	}
	return permanent(err)
}

func buildTwiML(voice, text string) (string, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(Speakable(text))); err != nil {
		return "", fmt.Errorf("failed to escape call text: %w", err)
	}
	say := fmt.Sprintf(`<Say voice="%s">%s</Say>`, voice, escaped.String())
	return `<?xml version="1.0" encoding="UTF-8"?><Response>` + say + `<Pause length="1"/>` + say + `</Response>`, nil
}
