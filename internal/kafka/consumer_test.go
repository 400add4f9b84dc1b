package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// MockHandler implements CommandHandler for testing
type MockHandler struct {
	processErr error
	testErr    error

	ProcessNowCalls int
	TestCalls       []testCall
}

type testCall struct {
	alertID  int
	channels models.Channels
}

func (m *MockHandler) ProcessNow(ctx context.Context) (models.CycleStatistics, error) {
	m.ProcessNowCalls++
	return models.CycleStatistics{Processed: 3, Triggered: 1, Sent: 1}, m.processErr
}

func (m *MockHandler) SendTestNotification(ctx context.Context, alertID int, channels models.Channels) (models.DispatchResult, error) {
	m.TestCalls = append(m.TestCalls, testCall{alertID: alertID, channels: channels})
	return models.DispatchResult{PushSent: channels.Push}, m.testErr
}

// MockReader replays a fixed list of messages, then blocks until cancelled
type MockReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (r *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) == 0 {
		r.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	r.mu.Unlock()
	return msg, nil
}

func (r *MockReader) remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *MockReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func commandMessage(t *testing.T, cmd models.CommandMessage) kafka.Message {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("cmd"), Value: data}
}

func newTestConsumer(handler CommandHandler, reader messageReader) *Consumer {
	return &Consumer{reader: reader, topic: "token-alert-commands", handler: handler, logger: zap.NewNop()}
}

func TestProcessMessage_ProcessNow(t *testing.T) {
	handler := &MockHandler{}
	c := newTestConsumer(handler, nil)

	err := c.processMessage(context.Background(), commandMessage(t, models.CommandMessage{EventType: EventProcessNow}))
	require.NoError(t, err)
	assert.Equal(t, 1, handler.ProcessNowCalls)
}

func TestProcessMessage_TestNotification(t *testing.T) {
	handler := &MockHandler{}
	c := newTestConsumer(handler, nil)

	channels := models.Channels{SMS: true, Calls: true}
	err := c.processMessage(context.Background(), commandMessage(t, models.CommandMessage{
		EventType: EventTestNotification,
		AlertID:   12,
		Channels:  &channels,
	}))
	require.NoError(t, err)
	require.Len(t, handler.TestCalls, 1)
	assert.Equal(t, 12, handler.TestCalls[0].alertID)
	assert.Equal(t, channels, handler.TestCalls[0].channels)
}

func TestProcessMessage_TestNotificationDefaultsToPush(t *testing.T) {
	handler := &MockHandler{}
	c := newTestConsumer(handler, nil)

	err := c.processMessage(context.Background(), commandMessage(t, models.CommandMessage{EventType: EventTestNotification, AlertID: 4}))
	require.NoError(t, err)
	require.Len(t, handler.TestCalls, 1)
	assert.Equal(t, models.Channels{Push: true}, handler.TestCalls[0].channels)
}

func TestProcessMessage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler *MockHandler
		msg     kafka.Message
	}{
		{
			name:    "invalid json",
			handler: &MockHandler{},
			msg:     kafka.Message{Value: []byte("{not json")},
		},
		{
			name:    "test notification without alert id",
			handler: &MockHandler{},
			msg:     commandMessage(t, models.CommandMessage{EventType: EventTestNotification}),
		},
		{
			name:    "process now fails",
			handler: &MockHandler{processErr: errors.New("scheduler stopped")},
			msg:     commandMessage(t, models.CommandMessage{EventType: EventProcessNow}),
		},
		{
			name:    "test notification fails",
			handler: &MockHandler{testErr: errors.New("alert not found")},
			msg:     commandMessage(t, models.CommandMessage{EventType: EventTestNotification, AlertID: 1}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(tt.handler, nil)
			assert.Error(t, c.processMessage(context.Background(), tt.msg))
		})
	}
}

func TestProcessMessage_IgnoresUnknownEvents(t *testing.T) {
	handler := &MockHandler{}
	c := newTestConsumer(handler, nil)

	err := c.processMessage(context.Background(), commandMessage(t, models.CommandMessage{EventType: "STOCK_ADDED"}))
	require.NoError(t, err)
	assert.Zero(t, handler.ProcessNowCalls)
	assert.Empty(t, handler.TestCalls)
}

func TestStart_ProcessesUntilCancelled(t *testing.T) {
	handler := &MockHandler{}
	reader := &MockReader{messages: []kafka.Message{
		{Value: []byte("garbage")},
		commandMessage(t, models.CommandMessage{EventType: EventProcessNow}),
		commandMessage(t, models.CommandMessage{EventType: EventProcessNow}),
	}}
	c := newTestConsumer(handler, reader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.remaining() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, handler.ProcessNowCalls)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
