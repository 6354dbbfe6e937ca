// Package wallet holds the wallet session: which account is signed in and
// the connection used to read chain state and sign on its behalf.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"divvy/pkg/client"
	"divvy/pkg/logger"
	"divvy/pkg/parser"
	"divvy/pkg/signer"
	"divvy/pkg/types"
)

// ErrNotSignedIn is returned by operations that need an account
var ErrNotSignedIn = errors.New("not signed in")

// State of a wallet session
type State int

const (
	SignedOut State = iota
	SignedIn
)

func (s State) String() string {
	if s == SignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// AccountStore persists which account is active
type AccountStore interface {
	ActiveAccount() string
	SetActiveAccount(accountID string) error
}

// Dialer opens a connection for an account. creds is nil for a read-only
// connection.
type Dialer func(accountID string, creds *Credentials) (Connection, error)

// RPCDialer returns a Dialer backed by a NEAR RPC node. Accounts whose key
// is not ed25519 get a read-only connection.
func RPCDialer(rpc *client.NearRPC) Dialer {
	return func(accountID string, creds *Credentials) (Connection, error) {
		if creds == nil {
			return NewRPCConnection(rpc, accountID, nil), nil
		}
		keys, err := signer.ParseKeyPair(creds.PrivateKey)
		if err != nil {
			logger.Debug("opening read-only connection", zap.String("account", accountID), zap.Error(err))
			return NewRPCConnection(rpc, accountID, nil), nil
		}
		return NewRPCConnection(rpc, accountID, keys), nil
	}
}

// Session tracks the signed-in account and lazily opens its connection.
// It is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	state     State
	accountID string
	creds     *Credentials
	conn      Connection
	msgSigner signer.MessageSigner

	store     AccountStore
	keystore  *Keystore
	dial      Dialer
	standard  string
	recipient string

	nextID    int
	listeners map[int]func(accountID string)
}

// NewSession creates a signed-out session. standard is the message signing
// standard and recipient the verifying contract messages are addressed to.
func NewSession(store AccountStore, keystore *Keystore, dial Dialer, standard, recipient string) *Session {
	return &Session{
		state:     SignedOut,
		store:     store,
		keystore:  keystore,
		dial:      dial,
		standard:  standard,
		recipient: recipient,
		listeners: make(map[int]func(string)),
	}
}

// Start derives the signed-in account from the store and returns it, or ""
func (s *Session) Start(ctx context.Context) (string, error) {
	s.Refresh()
	return s.AccountID(), nil
}

// Refresh re-reads the active account from the store. It is called when
// the store reports a change.
func (s *Session) Refresh() {
	accountID := s.store.ActiveAccount()

	var creds *Credentials
	if accountID != "" {
		var err error
		creds, err = s.keystore.Load(accountID)
		if err != nil {
			logger.Warn("active account has no usable credentials", zap.String("account", accountID), zap.Error(err))
			accountID = ""
		}
	}

	s.mu.Lock()
	s.setAccount(accountID, creds)
	s.mu.Unlock()

	s.notify(accountID)
}

// SignIn stores the key for accountID and makes it the active account
func (s *Session) SignIn(ctx context.Context, accountID, secretKey string) error {
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}

	msgSigner, err := signer.New(s.standard, secretKey)
	if err != nil {
		return fmt.Errorf("failed to load key for %s: %w", accountID, err)
	}

	creds := &Credentials{AccountID: accountID, PrivateKey: secretKey}
	if kp, err := signer.ParseKeyPair(secretKey); err == nil {
		creds.PublicKey = kp.PublicKey()
	}

	if err := s.keystore.Save(*creds); err != nil {
		return err
	}
	if err := s.store.SetActiveAccount(accountID); err != nil {
		return err
	}

	s.mu.Lock()
	s.setAccount(accountID, creds)
	s.msgSigner = msgSigner
	s.mu.Unlock()

	logger.Info("signed in", zap.String("account", accountID), zap.String("standard", s.standard))
	s.notify(accountID)
	return nil
}

// SignOut clears the active account. Stored keys are kept.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.store.SetActiveAccount(""); err != nil {
		return err
	}

	s.mu.Lock()
	s.setAccount("", nil)
	s.mu.Unlock()

	logger.Info("signed out")
	s.notify("")
	return nil
}

// Subscribe registers fn to run on every account change and returns a
// function that removes it
func (s *Session) Subscribe(fn func(accountID string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AccountID returns the signed-in account or ""
func (s *Session) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

// RequireAccount returns the signed-in account or ErrNotSignedIn
func (s *Session) RequireAccount() (string, error) {
	accountID := s.AccountID()
	if accountID == "" {
		return "", ErrNotSignedIn
	}
	return accountID, nil
}

// PublicKey returns the public key (or EVM address) of the signed-in account
func (s *Session) PublicKey() (string, error) {
	msgSigner, err := s.messageSigner()
	if err != nil {
		return "", err
	}
	return msgSigner.PublicKey(), nil
}

// setAccount must be called with mu held
func (s *Session) setAccount(accountID string, creds *Credentials) {
	if accountID != s.accountID || !sameKey(s.creds, creds) {
		s.conn = nil
		s.msgSigner = nil
	}
	s.accountID = accountID
	s.creds = creds
	if accountID == "" {
		s.state = SignedOut
		s.creds = nil
	} else {
		s.state = SignedIn
	}
}

func sameKey(a, b *Credentials) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.PrivateKey == b.PrivateKey
}

func (s *Session) notify(accountID string) {
	s.mu.RLock()
	listeners := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(accountID)
	}
}

// connection opens the connection on first use
func (s *Session) connection() (Connection, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn != nil {
		return conn, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	conn, err := s.dial(s.accountID, s.creds)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet connection: %w", err)
	}
	s.conn = conn
	return conn, nil
}

func (s *Session) messageSigner() (signer.MessageSigner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountID == "" {
		return nil, ErrNotSignedIn
	}
	if s.msgSigner == nil {
		msgSigner, err := signer.New(s.standard, s.creds.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load key for %s: %w", s.accountID, err)
		}
		s.msgSigner = msgSigner
	}
	return s.msgSigner, nil
}

// ViewMethod calls a read-only contract method and decodes its JSON result.
// Non-JSON results are returned as a string.
func (s *Session) ViewMethod(ctx context.Context, contractID, method string, args interface{}) (interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}

	conn, err := s.connection()
	if err != nil {
		return nil, err
	}

	raw, err := conn.CallFunction(ctx, contractID, method, encoded)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw), nil
	}
	return value, nil
}

// CallMethod sends a single function call transaction and returns the
// decoded result of its outcome. Empty gas and deposit default to 30 Tgas
// and zero.
func (s *Session) CallMethod(ctx context.Context, contractID, method string, args map[string]interface{}, gas, deposit string) (interface{}, error) {
	if gas == "" {
		gas = types.DefaultGas
	}
	if deposit == "" {
		deposit = "0"
	}

	outcomes, err := s.SignAndSendTransactions(ctx, []types.Transaction{{
		ReceiverID: contractID,
		Actions:    []types.Action{types.NewFunctionCall(method, args, gas, deposit)},
	}})
	if err != nil {
		return nil, err
	}
	return client.LastResult(outcomes[0])
}

// SignAndSendTransactions signs and sends txs in order, stopping at the
// first failure
func (s *Session) SignAndSendTransactions(ctx context.Context, txs []types.Transaction) ([]json.RawMessage, error) {
	accountID, err := s.RequireAccount()
	if err != nil {
		return nil, err
	}

	conn, err := s.connection()
	if err != nil {
		return nil, err
	}

	outcomes := make([]json.RawMessage, 0, len(txs))
	for _, tx := range txs {
		logger.Debug("sending transaction",
			zap.String("signer", accountID),
			zap.String("receiver", tx.ReceiverID),
			zap.Int("actions", len(tx.Actions)))

		outcome, err := conn.SignAndSend(ctx, tx)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// SignMessage signs an intent message with the signed-in account's key.
// An empty recipient defaults to the verifying contract.
func (s *Session) SignMessage(ctx context.Context, req types.SignMessageRequest) (*types.SignedData, error) {
	msgSigner, err := s.messageSigner()
	if err != nil {
		return nil, err
	}
	if req.Recipient == "" {
		req.Recipient = s.recipient
	}
	return msgSigner.SignMessage(req)
}

// GetBalance returns the NEAR balance of accountID, or of the signed-in
// account when accountID is empty
func (s *Session) GetBalance(ctx context.Context, accountID string) (string, error) {
	accountID, err := s.resolveAccount(accountID)
	if err != nil {
		return "", err
	}

	conn, err := s.connection()
	if err != nil {
		return "", err
	}

	view, err := conn.ViewAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return parser.FormatNearAmount(view.Amount)
}

// GetAccessKeys lists the access keys of accountID
func (s *Session) GetAccessKeys(ctx context.Context, accountID string) ([]types.AccessKey, error) {
	accountID, err := s.resolveAccount(accountID)
	if err != nil {
		return nil, err
	}

	conn, err := s.connection()
	if err != nil {
		return nil, err
	}
	return conn.ViewAccessKeyList(ctx, accountID)
}

// GetTransactionResult returns the decoded result of a transaction sent by
// the signed-in account
func (s *Session) GetTransactionResult(ctx context.Context, txHash string) (interface{}, error) {
	accountID, err := s.RequireAccount()
	if err != nil {
		return nil, err
	}

	conn, err := s.connection()
	if err != nil {
		return nil, err
	}

	outcome, err := conn.TxStatus(ctx, txHash, accountID)
	if err != nil {
		return nil, err
	}
	return client.LastResult(outcome)
}

// HasPublicKey reports whether the verifying contract knows publicKey for
// accountID
func (s *Session) HasPublicKey(ctx context.Context, accountID, publicKey string) (bool, error) {
	accountID, err := s.resolveAccount(accountID)
	if err != nil {
		return false, err
	}

	value, err := s.ViewMethod(ctx, s.recipient, "has_public_key", map[string]string{
		"account_id": accountID,
		"public_key": publicKey,
	})
	if err != nil {
		return false, err
	}

	has, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected has_public_key result %v", value)
	}
	return has, nil
}

// GetTokenBalance returns the intents balance of tokenID held by accountID
func (s *Session) GetTokenBalance(ctx context.Context, accountID, tokenID string) (string, error) {
	accountID, err := s.resolveAccount(accountID)
	if err != nil {
		return "", err
	}

	value, err := s.ViewMethod(ctx, s.recipient, "mt_balance_of", map[string]string{
		"account_id": accountID,
		"token_id":   tokenID,
	})
	if err != nil {
		return "", err
	}

	balance, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected mt_balance_of result %v", value)
	}
	return balance, nil
}

// RegisterPublicKey adds publicKey to the signed-in account on the
// verifying contract. An empty publicKey registers the session's own key.
func (s *Session) RegisterPublicKey(ctx context.Context, publicKey string) (interface{}, error) {
	if publicKey == "" {
		var err error
		if publicKey, err = s.PublicKey(); err != nil {
			return nil, err
		}
	}

	return s.CallMethod(ctx, s.recipient, "add_public_key", map[string]interface{}{
		"public_key": publicKey,
	}, types.DefaultGas, "1")
}

func (s *Session) resolveAccount(accountID string) (string, error) {
	if accountID != "" {
		return accountID, nil
	}
	return s.RequireAccount()
}
