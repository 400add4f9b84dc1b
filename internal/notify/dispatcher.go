package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trogers1052/token-alert-system/internal/metrics"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

const defaultChannelTimeout = 15 * time.Second

// Dispatcher fans a trigger out to push, SMS and voice concurrently.
// Each channel is isolated: a failing or hung channel never blocks the others.
type Dispatcher struct {
	push    PushSender
	sms     SMSSender
	voice   VoiceSender
	timeout time.Duration
	logger  *zap.Logger
}

// Outcome is the result of one dispatch, with the number of channels attempted
type Outcome struct {
	models.DispatchResult
	Attempted int
}

// Failed reports whether channels were attempted and none delivered
func (o Outcome) Failed() bool {
	return o.Attempted > 0 && !o.Any()
}

// NewDispatcher creates a Dispatcher. Nil senders make their channel always fail.
// timeout bounds each channel send; zero selects the default.
func NewDispatcher(push PushSender, sms SMSSender, voice VoiceSender, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	return &Dispatcher{push: push, sms: sms, voice: voice, timeout: timeout, logger: logger}
}

// Dispatch sends t on every enabled channel and waits for all of them
func (d *Dispatcher) Dispatch(ctx context.Context, t models.TriggerEvent) Outcome {
	var (
		out Outcome
		wg  sync.WaitGroup
	)
	log := d.logger.With(zap.Int("alert_id", t.AlertID), zap.String("kind", string(t.Kind)))

	phoneOK := false
	if t.Channels.SMS || t.Channels.Calls {
		if t.PhoneNumber == "" {
			log.Debug("no phone number on alert, skipping sms and voice")
		} else if err := ValidatePhone(t.PhoneNumber); err != nil {
			log.Warn("skipping sms and voice", zap.Error(err))
		} else {
			phoneOK = true
		}
	}

	if t.Channels.Push {
		out.Attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.PushSent = d.attempt(ctx, log, models.ChannelPush, func(ctx context.Context) error {
				if d.push == nil {
					return ErrNotConfigured
				}
				return d.push.SendPush(ctx, t.UserID, t.Message)
			})
		}()
	}

	if t.Channels.SMS && phoneOK {
		out.Attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.SMSSent = d.attempt(ctx, log, models.ChannelSMS, func(ctx context.Context) error {
				if d.sms == nil {
					return ErrNotConfigured
				}
				return d.sms.SendSMS(ctx, t.PhoneNumber, t.Message)
			})
		}()
	}

	if t.Channels.Calls && phoneOK {
		out.Attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			spoken := t.SpokenMessage
			if spoken == "" {
				spoken = Speakable(t.Message)
			}
			out.VoiceSent = d.attempt(ctx, log, models.ChannelVoice, func(ctx context.Context) error {
				if d.voice == nil {
					return ErrNotConfigured
				}
				return d.voice.SendVoice(ctx, t.PhoneNumber, spoken)
			})
		}()
	}

	wg.Wait()
	log.Info("dispatch complete",
		zap.Bool("push", out.PushSent),
		zap.Bool("sms", out.SMSSent),
		zap.Bool("voice", out.VoiceSent),
		zap.Int("attempted", out.Attempted),
	)
	return out
}

// attempt runs send with the channel timeout. A send that outlives the timeout
// keeps running in its own goroutine and its result is discarded.
func (d *Dispatcher) attempt(ctx context.Context, log *zap.Logger, ch models.Channel, send func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s sender panicked: %v", ch, r)
			}
		}()
		done <- send(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("%s send timed out: %w", ch, ctx.Err())
	}

	if err != nil {
		metrics.ChannelSendsTotal.WithLabelValues(string(ch), "failure").Inc()
		log.Warn("channel send failed", zap.String("channel", string(ch)), zap.Error(err))
		return false
	}
	metrics.ChannelSendsTotal.WithLabelValues(string(ch), "success").Inc()
	return true
}
