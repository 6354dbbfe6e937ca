package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/pkg/client"
	"divvy/pkg/types"
)

type stubRelay struct {
	result json.RawMessage
	err    error
	req    types.QuoteRequest
}

func (s *stubRelay) Quote(ctx context.Context, req types.QuoteRequest) (json.RawMessage, error) {
	s.req = req
	return s.result, s.err
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		candidates []types.Quote
		wantHash   string
	}{
		{
			name: "greatest wins",
			candidates: []types.Quote{
				{AmountOut: "100", QuoteHash: "a"},
				{AmountOut: "300", QuoteHash: "b"},
				{AmountOut: "200", QuoteHash: "c"},
			},
			wantHash: "b",
		},
		{
			name: "tie keeps first",
			candidates: []types.Quote{
				{AmountOut: "300", QuoteHash: "a"},
				{AmountOut: "300", QuoteHash: "b"},
			},
			wantHash: "a",
		},
		{
			name: "integer comparison beyond float precision",
			candidates: []types.Quote{
				{AmountOut: "100000000000000000000000001", QuoteHash: "a"},
				{AmountOut: "100000000000000000000000002", QuoteHash: "b"},
			},
			wantHash: "b",
		},
		{
			name: "invalid amounts never win",
			candidates: []types.Quote{
				{QuoteHash: "missing"},
				{AmountOut: "-5", QuoteHash: "negative"},
				{AmountOut: "1.5", QuoteHash: "fraction"},
				{AmountOut: "7", QuoteHash: "ok"},
			},
			wantHash: "ok",
		},
		{
			name:       "zero never wins",
			candidates: []types.Quote{{AmountOut: "0", QuoteHash: "zero"}},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best := SelectBest(tt.candidates)
			assert.Equal(t, tt.wantHash, best.QuoteHash)
			if tt.wantHash == "" {
				assert.True(t, best.IsZero())
			}
		})
	}
}

func TestFetch(t *testing.T) {
	relay := &stubRelay{result: json.RawMessage(`[
		{"quote_hash":"a","amount_in":"1000","amount_out":"10","defuse_asset_identifier_in":"nep141:wrap.near"},
		{"quote_hash":"b","amount_in":"1000","amount_out":"12","expiration_time":"2024-01-01T00:00:00Z"}
	]`)}

	result := NewFetcher(relay).Fetch(context.Background(), types.QuoteRequest{ExactAmountIn: "1000"})

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "b", result.Best.QuoteHash)
	assert.Equal(t, "2024-01-01T00:00:00Z", result.Best.ExpirationTime)
	assert.Equal(t, int64(DefaultMinDeadlineMs), relay.req.MinDeadlineMs)
	for _, q := range result.Candidates {
		best, _ := strconv.Atoi(result.Best.AmountOut)
		other, _ := strconv.Atoi(q.AmountOut)
		assert.GreaterOrEqual(t, best, other)
	}
}

func TestFetchFailuresYieldEmptyResult(t *testing.T) {
	for name, relay := range map[string]*stubRelay{
		"transport error": {err: errors.New("connection refused")},
		"null result":     {result: json.RawMessage(`null`)},
		"object result":   {result: json.RawMessage(`{"quotes":[]}`)},
		"empty body":      {result: nil},
	} {
		t.Run(name, func(t *testing.T) {
			result := NewFetcher(relay).Fetch(context.Background(), types.QuoteRequest{})
			assert.Empty(t, result.Candidates)
			assert.True(t, result.Best.IsZero())

			encoded, err := json.Marshal(result.Best)
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(encoded))
		})
	}
}

func TestFetchAgainstRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req client.RPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dontcare", req.ID)
		assert.Equal(t, "quote", req.Method)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"dontcare","result":[{"quote_hash":"q","amount_out":"42"}]}`))
	}))
	defer srv.Close()

	result := NewFetcher(client.NewRelayClient(srv.URL)).Fetch(context.Background(), types.QuoteRequest{})
	assert.Equal(t, "q", result.Best.QuoteHash)
}

func TestFetchRelayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := NewFetcher(client.NewRelayClient(srv.URL)).Fetch(context.Background(), types.QuoteRequest{})
	assert.True(t, result.Best.IsZero())
	assert.Nil(t, result.Candidates)
}
