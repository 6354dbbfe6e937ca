package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"divvy/pkg/client"
	"divvy/pkg/signer"
	"divvy/pkg/types"
)

// ErrReadOnly is returned when a connection has no ed25519 key to sign
// NEAR transactions with
var ErrReadOnly = errors.New("connection cannot sign transactions")

// Connection is the wallet backend a session talks to
type Connection interface {
	CallFunction(ctx context.Context, contractID, method string, args []byte) ([]byte, error)
	ViewAccount(ctx context.Context, accountID string) (*client.AccountView, error)
	ViewAccessKeyList(ctx context.Context, accountID string) ([]types.AccessKey, error)
	TxStatus(ctx context.Context, txHash, senderID string) (json.RawMessage, error)
	// SignAndSend signs tx as the connection's account and waits for the outcome
	SignAndSend(ctx context.Context, tx types.Transaction) (json.RawMessage, error)
}

// RPCConnection signs transactions locally and sends them to a NEAR RPC node
type RPCConnection struct {
	rpc       *client.NearRPC
	accountID string
	keys      *signer.KeyPair
}

// NewRPCConnection creates a connection for accountID. keys may be nil for
// a read-only connection.
func NewRPCConnection(rpc *client.NearRPC, accountID string, keys *signer.KeyPair) *RPCConnection {
	return &RPCConnection{rpc: rpc, accountID: accountID, keys: keys}
}

func (c *RPCConnection) CallFunction(ctx context.Context, contractID, method string, args []byte) ([]byte, error) {
	return c.rpc.CallFunction(ctx, contractID, method, args)
}

func (c *RPCConnection) ViewAccount(ctx context.Context, accountID string) (*client.AccountView, error) {
	return c.rpc.ViewAccount(ctx, accountID)
}

func (c *RPCConnection) ViewAccessKeyList(ctx context.Context, accountID string) ([]types.AccessKey, error) {
	return c.rpc.ViewAccessKeyList(ctx, accountID)
}

func (c *RPCConnection) TxStatus(ctx context.Context, txHash, senderID string) (json.RawMessage, error) {
	return c.rpc.TxStatus(ctx, txHash, senderID)
}

// SignAndSend uses the next access key nonce and the block hash reported
// with it
func (c *RPCConnection) SignAndSend(ctx context.Context, tx types.Transaction) (json.RawMessage, error) {
	if c.keys == nil {
		return nil, ErrReadOnly
	}

	key, err := c.rpc.ViewAccessKey(ctx, c.accountID, c.keys.PublicKey())
	if err != nil {
		return nil, err
	}

	blockHash := key.BlockHash
	if blockHash == "" {
		if blockHash, err = c.rpc.BlockHash(ctx); err != nil {
			return nil, err
		}
	}

	unsigned, err := encodeTransaction(c.accountID, c.keys.PublicKeyBytes(), key.Nonce+1, blockHash, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction to %s: %w", tx.ReceiverID, err)
	}

	signed, _, err := signTransaction(unsigned, c.keys.Sign)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction to %s: %w", tx.ReceiverID, err)
	}

	return c.rpc.BroadcastTxCommit(ctx, signed)
}
