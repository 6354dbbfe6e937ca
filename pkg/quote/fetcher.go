// Package quote fetches solver quotes from the relay and picks the best one.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"go.uber.org/zap"

	"divvy/pkg/logger"
	"divvy/pkg/types"
)

// DefaultMinDeadlineMs is the quote validity requested when none is given
const DefaultMinDeadlineMs = 60000

// ErrNoQuote is returned by callers that need a quote and got none
var ErrNoQuote = errors.New("no quote available")

// Relay is the part of the relay client the fetcher needs
type Relay interface {
	Quote(ctx context.Context, req types.QuoteRequest) (json.RawMessage, error)
}

// Fetcher asks the relay for quotes
type Fetcher struct {
	relay Relay
}

// NewFetcher creates a quote fetcher
func NewFetcher(relay Relay) *Fetcher {
	return &Fetcher{relay: relay}
}

// Fetch requests quotes for req. Failures never surface as errors: they are
// logged and reported as a result with no candidates and an empty best quote.
func (f *Fetcher) Fetch(ctx context.Context, req types.QuoteRequest) types.QuoteResult {
	if req.MinDeadlineMs <= 0 {
		req.MinDeadlineMs = DefaultMinDeadlineMs
	}

	raw, err := f.relay.Quote(ctx, req)
	if err != nil {
		logger.Warn("quote request failed",
			zap.String("in", req.InputAsset),
			zap.String("out", req.OutputAsset),
			zap.Error(err))
		return types.QuoteResult{}
	}

	var candidates []types.Quote
	if err := json.Unmarshal(raw, &candidates); err != nil {
		logger.Warn("relay returned no quote list", zap.ByteString("result", raw), zap.Error(err))
		return types.QuoteResult{}
	}

	result := types.QuoteResult{
		Candidates: candidates,
		Best:       SelectBest(candidates),
	}
	logger.Debug("quotes received",
		zap.Int("count", len(candidates)),
		zap.String("best_amount_out", result.Best.AmountOut))

	return result
}

// SelectBest returns the quote with the strictly greatest integer
// amount_out. Ties keep the first one seen. Quotes whose amount_out is
// missing, negative or not an integer never win; with no winner the zero
// quote is returned.
func SelectBest(candidates []types.Quote) types.Quote {
	best := types.Quote{}
	max := new(big.Int)

	for _, q := range candidates {
		amount, ok := new(big.Int).SetString(q.AmountOut, 10)
		if !ok {
			continue
		}
		if amount.Cmp(max) > 0 {
			max = amount
			best = q
		}
	}
	return best
}
