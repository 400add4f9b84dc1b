package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/token-alert-system/internal/models"
)

// EventTriggerDispatched is published after every dispatched trigger
const EventTriggerDispatched = "TRIGGER_DISPATCHED"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTriggerDispatched publishes a trigger and its dispatch result, keyed by token id
func (p *Producer) PublishTriggerDispatched(ctx context.Context, t models.TriggerEvent, result models.DispatchResult) error {
	event := models.TriggerEventMessage{
		EventID:   uuid.NewString(),
		EventType: EventTriggerDispatched,
		Trigger:   t,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, t.TokenID, event)
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
