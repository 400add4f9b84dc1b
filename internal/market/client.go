package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public DexScreener API
const DefaultBaseURL = "https://api.dexscreener.com"

// ErrNoPairs is returned when the upstream knows no trading pairs for a token
var ErrNoPairs = errors.New("no trading pairs found")

// Client reads token market data from a DexScreener-compatible pairs API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

// NewClient creates a Client; an empty baseURL selects DefaultBaseURL
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

type pairsResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	PairAddress string     `json:"pairAddress"`
	PriceUSD    lenientNum `json:"priceUsd"`
	PriceChange timeframes `json:"priceChange"`
	Volume      timeframes `json:"volume"`
	Liquidity   liquidity  `json:"liquidity"`
	FDV         lenientNum `json:"fdv"`
	MarketCap   lenientNum `json:"marketCap"`
}

type timeframes struct {
	H24 lenientNum `json:"h24"`
}

type liquidity struct {
	USD lenientNum `json:"usd"`
}

// lenientNum accepts a JSON number or numeric string. Anything else decodes
// to an invalid zero value instead of failing the whole response.
type lenientNum struct {
	Value decimal.Decimal
	Valid bool
}

func (n *lenientNum) UnmarshalJSON(data []byte) error {
	*n = lenientNum{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	n.Value, n.Valid = d, true
	return nil
}

// FetchSnapshot returns the snapshot of the most liquid pair for tokenID.
// It returns ErrNoPairs when the token has no pairs.
func (c *Client) FetchSnapshot(ctx context.Context, tokenID string) (*models.MarketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(tokenID))
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create market request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}
	defer response.Body.Close()

	c.logger.Debug("market request complete",
		zap.String("token_id", tokenID),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode == http.StatusNotFound {
		return nil, ErrNoPairs
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("market data error: status %d", response.StatusCode)
	}

	var payload pairsResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode market data: %w", err)
	}

	best := selectPair(payload.Pairs)
	if best == nil {
		return nil, ErrNoPairs
	}
	return c.toSnapshot(tokenID, best), nil
}

// selectPair returns the pair with the highest USD liquidity, first seen on ties
func selectPair(pairs []pair) *pair {
	var best *pair
	for i := range pairs {
		p := &pairs[i]
		if best == nil || p.Liquidity.USD.Value.GreaterThan(best.Liquidity.USD.Value) {
			best = p
		}
	}
	return best
}

func (c *Client) toSnapshot(tokenID string, p *pair) *models.MarketSnapshot {
	marketCap := p.MarketCap
	if !marketCap.Valid || marketCap.Value.IsZero() {
		marketCap = p.FDV
	}
	return &models.MarketSnapshot{
		TokenID:        tokenID,
		Price:          p.PriceUSD.Value,
		PriceChange24h: p.PriceChange.H24.Value,
		MarketCap:      marketCap.Value,
		Volume24h:      p.Volume.H24.Value,
		Liquidity:      p.Liquidity.USD.Value,
		PairAddress:    p.PairAddress,
		FetchedAt:      c.now().UTC(),
	}
}
