// Package price fetches spot USD prices from public exchanges.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"divvy/pkg/logger"
)

const (
	DefaultCoinbaseURL  = "https://api.coinbase.com"
	DefaultCoinGeckoURL = "https://api.coingecko.com"
)

// ErrNoPrice is returned when no source could price a token
var ErrNoPrice = errors.New("price not available")

// Source returns the USD price of a token symbol
type Source interface {
	Name() string
	USDPrice(ctx context.Context, symbol string) (float64, error)
}

// coinGeckoIDs maps symbols to CoinGecko coin ids
var coinGeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"NEAR": "near",
	"USDC": "usd-coin",
	"USDT": "tether",
}

func getJSON(ctx context.Context, httpClient *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s returned status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// Coinbase reads buy prices from the Coinbase v2 API
type Coinbase struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinbase creates a Coinbase source. An empty baseURL uses the public API.
func NewCoinbase(baseURL string) *Coinbase {
	if baseURL == "" {
		baseURL = DefaultCoinbaseURL
	}
	return &Coinbase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Coinbase) Name() string { return "coinbase" }

// USDPrice fetches /v2/prices/<SYMBOL>-USD/buy
func (c *Coinbase) USDPrice(ctx context.Context, symbol string) (float64, error) {
	var body struct {
		Data struct {
			Amount json.Number `json:"amount"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v2/prices/%s-USD/buy", c.baseURL, strings.ToUpper(symbol))
	if err := getJSON(ctx, c.httpClient, url, &body); err != nil {
		return 0, err
	}

	price, err := body.Data.Amount.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid coinbase price for %s: %w", symbol, err)
	}
	return price, nil
}

// CoinGecko reads prices from the CoinGecko simple price API
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGecko creates a CoinGecko source. An empty baseURL uses the public API.
func NewCoinGecko(baseURL string) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// USDPrice accepts a symbol with a known coin id or a raw CoinGecko id
func (c *CoinGecko) USDPrice(ctx context.Context, symbol string) (float64, error) {
	id, ok := coinGeckoIDs[strings.ToUpper(symbol)]
	if !ok {
		id = strings.ToLower(symbol)
	}

	var body map[string]map[string]float64
	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.baseURL, id)
	if err := getJSON(ctx, c.httpClient, url, &body); err != nil {
		return 0, err
	}

	price, ok := body[id]["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: coingecko has no usd price for %s", ErrNoPrice, id)
	}
	return price, nil
}

// Feed tries each source in order and returns the first price found
type Feed struct {
	sources []Source
}

// NewFeed creates a feed over sources
func NewFeed(sources ...Source) *Feed {
	return &Feed{sources: sources}
}

// DefaultFeed queries Coinbase, then CoinGecko
func DefaultFeed() *Feed {
	return NewFeed(NewCoinbase(""), NewCoinGecko(""))
}

// USDPrice returns the first price any source reports
func (f *Feed) USDPrice(ctx context.Context, symbol string) (float64, error) {
	for _, src := range f.sources {
		price, err := src.USDPrice(ctx, symbol)
		if err != nil {
			logger.Debug("price source failed", zap.String("source", src.Name()), zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		return price, nil
	}
	return 0, fmt.Errorf("%w for %s", ErrNoPrice, symbol)
}

// USDPrices prices every symbol, skipping those no source knows
func (f *Feed) USDPrices(ctx context.Context, symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		price, err := f.USDPrice(ctx, symbol)
		if err != nil {
			logger.Warn("no price for token", zap.String("symbol", symbol))
			continue
		}
		prices[strings.ToUpper(symbol)] = price
	}
	return prices
}
