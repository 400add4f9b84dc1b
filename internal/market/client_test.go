package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &path
}

func TestFetchSnapshot_SelectsMostLiquidPair(t *testing.T) {
	body := `{"pairs":[
		{"pairAddress":"small","priceUsd":"0.10","priceChange":{"h24":1.5},"volume":{"h24":100},"liquidity":{"usd":500},"marketCap":1000},
		{"pairAddress":"deep","priceUsd":"0.0015","priceChange":{"h24":-12.25},"volume":{"h24":250000.5},"liquidity":{"usd":90000},"fdv":2000000,"marketCap":1500000},
		{"pairAddress":"tie","priceUsd":"0.2","priceChange":{"h24":0},"volume":{"h24":1},"liquidity":{"usd":90000},"marketCap":1}
	]}`
	srv, path := newTestServer(t, http.StatusOK, body)
	c := NewClient(srv.URL+"/", time.Second, zap.NewNop())

	snap, err := c.FetchSnapshot(context.Background(), "TokenMint111")
	require.NoError(t, err)

	assert.Equal(t, "/latest/dex/tokens/TokenMint111", *path)
	assert.Equal(t, "TokenMint111", snap.TokenID)
	assert.Equal(t, "deep", snap.PairAddress)
	assert.True(t, snap.Price.Equal(decimal.RequireFromString("0.0015")))
	assert.True(t, snap.PriceChange24h.Equal(decimal.RequireFromString("-12.25")))
	assert.True(t, snap.MarketCap.Equal(decimal.NewFromInt(1500000)))
	assert.True(t, snap.Volume24h.Equal(decimal.RequireFromString("250000.5")))
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchSnapshot_MarketCapFallsBackToFDV(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"pairs":[{"pairAddress":"p","priceUsd":"1","liquidity":{"usd":1},"fdv":"3000000"}]}`)
	c := NewClient(srv.URL, time.Second, zap.NewNop())

	snap, err := c.FetchSnapshot(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, snap.MarketCap.Equal(decimal.NewFromInt(3000000)))
}

func TestFetchSnapshot_BadFieldsDefaultToZero(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"pairs":[{"pairAddress":"p","priceUsd":"n/a","priceChange":{"h24":"oops"},"volume":{"h24":null},"liquidity":{"usd":10},"marketCap":42}]}`)
	c := NewClient(srv.URL, time.Second, zap.NewNop())

	snap, err := c.FetchSnapshot(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, snap.Price.IsZero())
	assert.True(t, snap.PriceChange24h.IsZero())
	assert.True(t, snap.Volume24h.IsZero())
	assert.True(t, snap.MarketCap.Equal(decimal.NewFromInt(42)))
}

func TestFetchSnapshot_NoPairs(t *testing.T) {
	for _, body := range []string{`{"pairs":[]}`, `{"pairs":null}`, `{}`} {
		srv, _ := newTestServer(t, http.StatusOK, body)
		c := NewClient(srv.URL, time.Second, zap.NewNop())

		_, err := c.FetchSnapshot(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrNoPairs, body)
	}

	srv, _ := newTestServer(t, http.StatusNotFound, `{}`)
	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).FetchSnapshot(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrNoPairs)
}

func TestFetchSnapshot_UpstreamErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusTooManyRequests, `rate limited`)
	_, err := NewClient(srv.URL, time.Second, zap.NewNop()).FetchSnapshot(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPairs)
	assert.Contains(t, err.Error(), "429")

	srv, _ = newTestServer(t, http.StatusOK, `{"pairs":`)
	_, err = NewClient(srv.URL, time.Second, zap.NewNop()).FetchSnapshot(context.Background(), "tok")
	assert.Error(t, err)
}

func TestSelectPair(t *testing.T) {
	assert.Nil(t, selectPair(nil))

	pairs := []pair{
		{PairAddress: "a", Liquidity: liquidity{USD: lenientNum{Value: decimal.NewFromInt(5), Valid: true}}},
		{PairAddress: "b", Liquidity: liquidity{USD: lenientNum{Value: decimal.NewFromInt(5), Valid: true}}},
		{PairAddress: "c"},
	}
	assert.Equal(t, "a", selectPair(pairs).PairAddress)
}
