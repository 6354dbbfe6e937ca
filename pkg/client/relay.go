package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"divvy/pkg/types"
)

// RelayClient talks to the solver relay JSON-RPC endpoint
type RelayClient struct {
	conn rpcConn
}

// NewRelayClient creates a relay client for the given endpoint
func NewRelayClient(url string, opts ...Option) *RelayClient {
	return &RelayClient{conn: newRPCConn(url, opts...)}
}

// Quote asks solvers for offers and returns the raw result member.
// The relay answers with an array of quotes or null.
func (c *RelayClient) Quote(ctx context.Context, req types.QuoteRequest) (json.RawMessage, error) {
	resp, err := c.conn.call(ctx, "quote", []types.QuoteRequest{req})
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("failed to get quote: %w: %w", ErrRelay, resp.Error)
	}
	return resp.Result, nil
}

// PublishIntent submits a signed intent. The relay response is returned as
// received, including relay-level failures, so callers can surface it.
func (c *RelayClient) PublishIntent(ctx context.Context, intent types.PublishIntent) (*RPCResponse, error) {
	if intent.QuoteHashes == nil {
		intent.QuoteHashes = []string{}
	}

	resp, err := c.conn.call(ctx, "publish_intent", []types.PublishIntent{intent})
	if err != nil {
		return nil, fmt.Errorf("failed to publish intent: %w", err)
	}
	return resp, nil
}

// GetStatus returns the settlement status of a published intent
func (c *RelayClient) GetStatus(ctx context.Context, intentHash string) (*types.IntentStatus, error) {
	params := []map[string]string{{"intent_hash": intentHash}}

	var status types.IntentStatus
	if err := c.conn.callResult(ctx, "get_status", params, &status); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("failed to get status: %w: %w", ErrRelay, err)
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}
