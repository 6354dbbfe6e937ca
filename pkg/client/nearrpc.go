package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"divvy/pkg/types"
)

// Finality levels accepted by NEAR RPC queries
const (
	FinalityOptimistic = "optimistic"
	FinalityFinal      = "final"
)

// NearRPC is a minimal NEAR JSON-RPC client
type NearRPC struct {
	conn rpcConn
}

// AccountView is the result of a view_account query
type AccountView struct {
	Amount       string `json:"amount"`
	Locked       string `json:"locked"`
	CodeHash     string `json:"code_hash"`
	StorageUsage uint64 `json:"storage_usage"`
	BlockHeight  uint64 `json:"block_height"`
	BlockHash    string `json:"block_hash"`
}

// AccessKeyView is the result of a view_access_key query
type AccessKeyView struct {
	Nonce       uint64      `json:"nonce"`
	Permission  interface{} `json:"permission"`
	BlockHeight uint64      `json:"block_height"`
	BlockHash   string      `json:"block_hash"`
}

type callFunctionResult struct {
	Result      []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
	// Older nodes report contract panics here instead of as an RPC error
	Error string `json:"error,omitempty"`
}

// NewNearRPC creates a client for a NEAR RPC node
func NewNearRPC(url string, opts ...Option) *NearRPC {
	return &NearRPC{conn: newRPCConn(url, opts...)}
}

// CallFunction runs a view method and returns the raw bytes it produced
func (c *NearRPC) CallFunction(ctx context.Context, contractID, method string, args []byte) ([]byte, error) {
	params := map[string]interface{}{
		"request_type": "call_function",
		"account_id":   contractID,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(args),
		"finality":     FinalityOptimistic,
	}

	var res callFunctionResult
	if err := c.conn.callResult(ctx, "query", params, &res); err != nil {
		return nil, fmt.Errorf("failed to call %s.%s: %w", contractID, method, err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("failed to call %s.%s: %s", contractID, method, res.Error)
	}

	out := make([]byte, len(res.Result))
	for i, b := range res.Result {
		out[i] = byte(b)
	}
	return out, nil
}

// BlockHash returns the hash of the latest final block
func (c *NearRPC) BlockHash(ctx context.Context) (string, error) {
	params := map[string]string{"finality": FinalityFinal}

	var res struct {
		Header struct {
			Hash   string `json:"hash"`
			Height uint64 `json:"height"`
		} `json:"header"`
	}
	if err := c.conn.callResult(ctx, "block", params, &res); err != nil {
		return "", fmt.Errorf("failed to get latest block: %w", err)
	}
	return res.Header.Hash, nil
}

// ViewAccount returns the on-chain state of an account
func (c *NearRPC) ViewAccount(ctx context.Context, accountID string) (*AccountView, error) {
	params := map[string]interface{}{
		"request_type": "view_account",
		"account_id":   accountID,
		"finality":     FinalityFinal,
	}

	var view AccountView
	if err := c.conn.callResult(ctx, "query", params, &view); err != nil {
		return nil, fmt.Errorf("failed to view account %s: %w", accountID, err)
	}
	return &view, nil
}

// ViewAccessKey returns the nonce and a recent block hash for an access key
func (c *NearRPC) ViewAccessKey(ctx context.Context, accountID, publicKey string) (*AccessKeyView, error) {
	params := map[string]interface{}{
		"request_type": "view_access_key",
		"account_id":   accountID,
		"public_key":   publicKey,
		"finality":     FinalityFinal,
	}

	var view AccessKeyView
	if err := c.conn.callResult(ctx, "query", params, &view); err != nil {
		return nil, fmt.Errorf("failed to view access key of %s: %w", accountID, err)
	}
	return &view, nil
}

// ViewAccessKeyList returns every access key of an account
func (c *NearRPC) ViewAccessKeyList(ctx context.Context, accountID string) ([]types.AccessKey, error) {
	params := map[string]interface{}{
		"request_type": "view_access_key_list",
		"account_id":   accountID,
		"finality":     FinalityFinal,
	}

	var res struct {
		Keys []types.AccessKey `json:"keys"`
	}
	if err := c.conn.callResult(ctx, "query", params, &res); err != nil {
		return nil, fmt.Errorf("failed to list access keys of %s: %w", accountID, err)
	}
	return res.Keys, nil
}

// BroadcastTxCommit submits a base64 encoded signed transaction and waits
// for its execution outcome
func (c *NearRPC) BroadcastTxCommit(ctx context.Context, signedTx []byte) (json.RawMessage, error) {
	params := []string{base64.StdEncoding.EncodeToString(signedTx)}

	var outcome json.RawMessage
	if err := c.conn.callResult(ctx, "broadcast_tx_commit", params, &outcome); err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return outcome, nil
}

// TxStatus fetches the outcome of a transaction by hash
func (c *NearRPC) TxStatus(ctx context.Context, txHash, senderID string) (json.RawMessage, error) {
	params := []string{txHash, senderID}

	var outcome json.RawMessage
	if err := c.conn.callResult(ctx, "tx", params, &outcome); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", txHash, err)
	}
	return outcome, nil
}

// LastResult decodes the SuccessValue of an execution outcome as JSON.
// An empty SuccessValue yields nil.
func LastResult(outcome json.RawMessage) (interface{}, error) {
	var parsed types.TransactionOutcome
	if err := json.Unmarshal(outcome, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode transaction outcome: %w", err)
	}

	if parsed.Status.Failure != nil {
		failure, _ := json.Marshal(parsed.Status.Failure)
		return nil, fmt.Errorf("transaction %s failed: %s", parsed.Transaction.Hash, string(failure))
	}
	if parsed.Status.SuccessValue == nil || *parsed.Status.SuccessValue == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(*parsed.Status.SuccessValue)
	if err != nil {
		return nil, fmt.Errorf("failed to decode success value: %w", err)
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		// Non-JSON return values are passed through as text
		return string(raw), nil
	}
	return value, nil
}
