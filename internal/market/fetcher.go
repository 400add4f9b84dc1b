package market

import (
	"context"
	"errors"

	"github.com/trogers1052/token-alert-system/internal/metrics"
	"github.com/trogers1052/token-alert-system/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/trogers1052/token-alert-system/internal/market")

// SnapshotSource returns a market snapshot for a token
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, tokenID string) (*models.MarketSnapshot, error)
}

// Fetcher turns every upstream problem into "unavailable" so a cycle can skip the token
type Fetcher struct {
	source  SnapshotSource
	limiter Limiter
	logger  *zap.Logger
}

// NewFetcher creates a Fetcher. A nil limiter leaves requests unspaced.
func NewFetcher(source SnapshotSource, limiter Limiter, logger *zap.Logger) *Fetcher {
	return &Fetcher{source: source, limiter: limiter, logger: logger}
}

// Fetch returns the snapshot for tokenID, or false when none is available
func (f *Fetcher) Fetch(ctx context.Context, tokenID string) (*models.MarketSnapshot, bool) {
	ctx, span := tracer.Start(ctx, "market.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("token.id", tokenID))

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			metrics.MarketFetchTotal.WithLabelValues("cancelled").Inc()
			f.logger.Debug("market fetch not admitted", zap.String("token_id", tokenID), zap.Error(err))
			return nil, false
		}
	}

	snap, err := f.source.FetchSnapshot(ctx, tokenID)
	switch {
	case errors.Is(err, ErrNoPairs):
		metrics.MarketFetchTotal.WithLabelValues("no_pairs").Inc()
		f.logger.Info("no trading pairs for token", zap.String("token_id", tokenID))
		return nil, false
	case err != nil:
		metrics.MarketFetchTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		f.logger.Info("market data unavailable", zap.String("token_id", tokenID), zap.Error(err))
		return nil, false
	case snap == nil:
		metrics.MarketFetchTotal.WithLabelValues("no_pairs").Inc()
		return nil, false
	}

	metrics.MarketFetchTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.String("market.pair", snap.PairAddress))
	return snap, true
}
