package quote

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"divvy/pkg/types"
)

// PriceInfo is the price of one input unit expressed in output units
type PriceInfo struct {
	Price       string
	PriceFloat  float64
	InputAsset  string
	OutputAsset string
	Quote       types.Quote
}

// Pricer derives spot prices from the best solver quote
type Pricer struct {
	fetcher *Fetcher
}

// NewPricer creates a pricer on top of a fetcher
func NewPricer(fetcher *Fetcher) *Pricer {
	return &Pricer{fetcher: fetcher}
}

// GetPrice quotes req and converts the best quote into a price, using the
// decimals of both assets to normalise the raw amounts
func (p *Pricer) GetPrice(ctx context.Context, req types.QuoteRequest, decimalsIn, decimalsOut int32) (*PriceInfo, error) {
	result := p.fetcher.Fetch(ctx, req)
	if result.Best.IsZero() {
		return nil, ErrNoQuote
	}
	return ImpliedPrice(result.Best, decimalsIn, decimalsOut)
}

// ImpliedPrice computes amount_out / amount_in after scaling both by their
// token decimals
func ImpliedPrice(q types.Quote, decimalsIn, decimalsOut int32) (*PriceInfo, error) {
	amountIn, err := decimal.NewFromString(q.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount in: %w", err)
	}
	amountOut, err := decimal.NewFromString(q.AmountOut)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount out: %w", err)
	}

	if amountIn.IsZero() {
		return nil, fmt.Errorf("invalid amount in: 0")
	}

	price := amountOut.Shift(-decimalsOut).DivRound(amountIn.Shift(-decimalsIn), 8)
	priceFloat, _ := price.Float64()

	return &PriceInfo{
		Price:       price.StringFixed(8),
		PriceFloat:  priceFloat,
		InputAsset:  q.InputAsset,
		OutputAsset: q.OutputAsset,
		Quote:       q,
	}, nil
}
