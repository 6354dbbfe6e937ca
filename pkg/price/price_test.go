package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinbase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/prices/NEAR-USD/buy", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"base":"NEAR","currency":"USD","amount":"5.47"}}`))
	}))
	defer srv.Close()

	price, err := NewCoinbase(srv.URL).USDPrice(context.Background(), "near")
	require.NoError(t, err)
	assert.InDelta(t, 5.47, price, 1e-9)
}

func TestCoinGecko(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2500.5}}`))
	}))
	defer srv.Close()

	price, err := NewCoinGecko(srv.URL).USDPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.InDelta(t, 2500.5, price, 1e-9)
}

func TestCoinGeckoMissingCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewCoinGecko(srv.URL).USDPrice(context.Background(), "doge")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestFeedFallsBack(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer down.Close()
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"near":{"usd":5.1}}`))
	}))
	defer gecko.Close()

	feed := NewFeed(NewCoinbase(down.URL), NewCoinGecko(gecko.URL))

	price, err := feed.USDPrice(context.Background(), "NEAR")
	require.NoError(t, err)
	assert.InDelta(t, 5.1, price, 1e-9)

	prices := feed.USDPrices(context.Background(), []string{"near", "unknown"})
	assert.Equal(t, map[string]float64{"NEAR": 5.1}, prices)
}

func TestFeedNoSources(t *testing.T) {
	_, err := NewFeed().USDPrice(context.Background(), "NEAR")
	assert.ErrorIs(t, err, ErrNoPrice)
}
