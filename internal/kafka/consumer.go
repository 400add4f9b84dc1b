package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// Command event types accepted on the command topic
const (
	EventProcessNow       = "PROCESS_NOW"
	EventTestNotification = "TEST_NOTIFICATION"
)

// CommandHandler executes commands received from Kafka
type CommandHandler interface {
	ProcessNow(ctx context.Context) (models.CycleStatistics, error)
	SendTestNotification(ctx context.Context, alertID int, channels models.Channels) (models.DispatchResult, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer handles consuming alert engine commands from Kafka
type Consumer struct {
	reader  messageReader
	topic   string
	handler CommandHandler
	logger  *zap.Logger
}

// NewConsumer creates a new Kafka consumer for the command topic
func NewConsumer(brokers []string, topic, groupID string, handler CommandHandler, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		topic:   topic,
		handler: handler,
		logger:  logger,
	}
}

// Start consumes commands until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka command consumer", zap.String("topic", c.topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka command consumer shutting down")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Warn("error reading command", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing command", zap.Error(err))
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug("received command",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.String("key", string(msg.Key)),
	)

	var cmd models.CommandMessage
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	switch cmd.EventType {
	case EventProcessNow:
		stats, err := c.handler.ProcessNow(ctx)
		if err != nil {
			return fmt.Errorf("failed to process alerts: %w", err)
		}
		c.logger.Info("processed alerts on command",
			zap.Int("processed", stats.Processed),
			zap.Int("triggered", stats.Triggered),
			zap.Int("sent", stats.Sent),
			zap.Int("errors", stats.Errors),
		)

	case EventTestNotification:
		if cmd.AlertID <= 0 {
			return fmt.Errorf("test notification without alert id")
		}
		channels := models.Channels{Push: true}
		if cmd.Channels != nil {
			channels = *cmd.Channels
		}
		result, err := c.handler.SendTestNotification(ctx, cmd.AlertID, channels)
		if err != nil {
			return fmt.Errorf("failed to send test notification: %w", err)
		}
		c.logger.Info("sent test notification on command",
			zap.Int("alert_id", cmd.AlertID),
			zap.Bool("push", result.PushSent),
			zap.Bool("sms", result.SMSSent),
			zap.Bool("voice", result.VoiceSent),
		)

	default:
		c.logger.Debug("ignoring event type", zap.String("event_type", cmd.EventType))
	}

	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
