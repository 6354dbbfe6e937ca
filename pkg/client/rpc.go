package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RequestID is sent as the id of every JSON-RPC request
const RequestID = "dontcare"

const defaultTimeout = 30 * time.Second

// ErrRelay marks failures reported by the relay itself rather than the transport
var ErrRelay = errors.New("relay error")

// RPCRequest is a JSON-RPC 2.0 request envelope
type RPCRequest struct {
	ID      string      `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// RPCError is a JSON-RPC error object
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   json.RawMessage `json:"cause,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RPCResponse is a decoded JSON-RPC response. Raw keeps the body as received.
type RPCResponse struct {
	ID      json.RawMessage `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// HTTPError represents a non-2xx answer from a JSON-RPC endpoint
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("POST %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Option configures a JSON-RPC client
type Option func(*rpcConn)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *rpcConn) {
		c.httpClient = httpClient
	}
}

type rpcConn struct {
	url        string
	httpClient *http.Client
}

func newRPCConn(url string, opts ...Option) rpcConn {
	c := rpcConn{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// call posts one JSON-RPC request and decodes the envelope. JSON-RPC error
// objects are left in the response for the caller to interpret.
func (c rpcConn) call(ctx context.Context, method string, params interface{}) (*RPCResponse, error) {
	body, err := json.Marshal(RPCRequest{
		ID:      RequestID,
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: httpResp.StatusCode, URL: c.url, Body: string(respBody)}
	}

	var resp RPCResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	resp.Raw = respBody

	return &resp, nil
}

// callResult performs call and decodes result into out, turning JSON-RPC
// error objects into *RPCError.
func (c rpcConn) callResult(ctx context.Context, method string, params interface{}, out interface{}) error {
	resp, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
