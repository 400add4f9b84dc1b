package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PushConfig configures the push gateway
type PushConfig struct {
	URL         string
	APIKey      string
	AppID       string
	Title       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// PushClient delivers push notifications through an HTTP gateway that
// addresses devices by external user id.
type PushClient struct {
	cfg    PushConfig
	client *http.Client
	logger *zap.Logger
}

type pushRequest struct {
	AppID           string            `json:"app_id,omitempty"`
	ExternalUserIDs []string          `json:"include_external_user_ids"`
	Headings        map[string]string `json:"headings,omitempty"`
	Contents        map[string]string `json:"contents"`
}

// NewPushClient creates a push client. It returns ErrNotConfigured when no gateway URL is set.
func NewPushClient(cfg PushConfig, logger *zap.Logger) (*PushClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("push: %w: gateway url is required", ErrNotConfigured)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Title == "" {
		cfg.Title = "Token alert"
	}
	return &PushClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// SendPush sends message to every registered device of userID
func (p *PushClient) SendPush(ctx context.Context, userID, message string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("push: empty user id")
	}
	body, err := json.Marshal(pushRequest{
		AppID:           p.cfg.AppID,
		ExternalUserIDs: []string{userID},
		Headings:        map[string]string{"en": p.cfg.Title},
		Contents:        map[string]string{"en": message},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	return retry(ctx, p.logger, "push", p.cfg.MaxAttempts, p.cfg.RetryDelay, func() error {
		return p.post(ctx, body)
	})
}

func (p *PushClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}
