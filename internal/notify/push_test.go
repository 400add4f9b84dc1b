package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPushClientSendPush(t *testing.T) {
	var got pushRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewPushClient(PushConfig{URL: srv.URL, APIKey: "key", AppID: "app"}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, client.SendPush(context.Background(), "user-1", "PEPE pumped"))
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, []string{"user-1"}, got.ExternalUserIDs)
	assert.Equal(t, "PEPE pumped", got.Contents["en"])
	assert.Equal(t, "app", got.AppID)
}

func TestPushClientRetriesOnServerError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewPushClient(PushConfig{URL: srv.URL, MaxAttempts: 3, RetryDelay: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, client.SendPush(context.Background(), "user-1", "hi"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPushClientFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewPushClient(PushConfig{URL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, client.SendPush(context.Background(), "user-1", "hi"))
	assert.Error(t, client.SendPush(context.Background(), " ", "hi"))
}

func TestNewPushClientRequiresURL(t *testing.T) {
	_, err := NewPushClient(PushConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
