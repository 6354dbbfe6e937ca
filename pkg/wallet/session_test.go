package wallet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"divvy/pkg/client"
	"divvy/pkg/signer"
	"divvy/pkg/types"
)

type memStore struct {
	mu      sync.Mutex
	account string
}

func (m *memStore) ActiveAccount() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account
}

func (m *memStore) SetActiveAccount(accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account = accountID
	return nil
}

type mockConnection struct {
	mock.Mock
}

func (m *mockConnection) CallFunction(ctx context.Context, contractID, method string, args []byte) ([]byte, error) {
	ret := m.Called(contractID, method, string(args))
	b, _ := ret.Get(0).([]byte)
	return b, ret.Error(1)
}

func (m *mockConnection) ViewAccount(ctx context.Context, accountID string) (*client.AccountView, error) {
	ret := m.Called(accountID)
	v, _ := ret.Get(0).(*client.AccountView)
	return v, ret.Error(1)
}

func (m *mockConnection) ViewAccessKeyList(ctx context.Context, accountID string) ([]types.AccessKey, error) {
	ret := m.Called(accountID)
	v, _ := ret.Get(0).([]types.AccessKey)
	return v, ret.Error(1)
}

func (m *mockConnection) TxStatus(ctx context.Context, txHash, senderID string) (json.RawMessage, error) {
	ret := m.Called(txHash, senderID)
	v, _ := ret.Get(0).(json.RawMessage)
	return v, ret.Error(1)
}

func (m *mockConnection) SignAndSend(ctx context.Context, tx types.Transaction) (json.RawMessage, error) {
	ret := m.Called(tx)
	v, _ := ret.Get(0).(json.RawMessage)
	return v, ret.Error(1)
}

type sessionFixture struct {
	session  *Session
	store    *memStore
	keystore *Keystore
	conn     *mockConnection
	dials    int
}

func newFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		store:    &memStore{},
		keystore: NewKeystore(t.TempDir(), "testnet"),
		conn:     &mockConnection{},
	}
	dial := func(accountID string, creds *Credentials) (Connection, error) {
		f.dials++
		return f.conn, nil
	}
	f.session = NewSession(f.store, f.keystore, dial, signer.StandardNEP413, "intents.near")
	return f
}

func (f *sessionFixture) signIn(t *testing.T, accountID string) *signer.KeyPair {
	t.Helper()
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, f.session.SignIn(context.Background(), accountID, kp.SecretKey()))
	return kp
}

func outcome(value string) json.RawMessage {
	encoded := base64.StdEncoding.EncodeToString([]byte(value))
	return json.RawMessage(`{"status":{"SuccessValue":"` + encoded + `"},"transaction":{"hash":"h"}}`)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var seen []string
	unsubscribe := f.session.Subscribe(func(accountID string) { seen = append(seen, accountID) })

	account, err := f.session.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", account)
	assert.Equal(t, SignedOut, f.session.State())

	kp := f.signIn(t, "alice.testnet")
	assert.Equal(t, SignedIn, f.session.State())
	assert.Equal(t, "alice.testnet", f.session.AccountID())
	assert.Equal(t, "alice.testnet", f.store.ActiveAccount())

	creds, err := f.keystore.Load("alice.testnet")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), creds.PublicKey)

	require.NoError(t, f.session.SignOut(ctx))
	assert.Equal(t, SignedOut, f.session.State())
	assert.Equal(t, "", f.store.ActiveAccount())

	unsubscribe()
	f.signIn(t, "bob.testnet")

	assert.Equal(t, []string{"", "alice.testnet", ""}, seen)
}

func TestSessionStartRestoresAccount(t *testing.T) {
	f := newFixture(t)
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, f.keystore.Save(Credentials{AccountID: "carol.testnet", PrivateKey: kp.SecretKey()}))
	f.store.account = "carol.testnet"

	account, err := f.session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "carol.testnet", account)
	assert.Equal(t, SignedIn, f.session.State())
}

func TestSessionRefreshWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	f.store.account = "ghost.testnet"

	var got []string
	f.session.Subscribe(func(accountID string) { got = append(got, accountID) })
	f.session.Refresh()

	assert.Equal(t, SignedOut, f.session.State())
	assert.Equal(t, []string{""}, got)
}

func TestSessionSignInRejectsBadKey(t *testing.T) {
	f := newFixture(t)
	err := f.session.SignIn(context.Background(), "alice.testnet", "ed25519:nope")
	assert.ErrorIs(t, err, signer.ErrInvalidKey)
	assert.Equal(t, SignedOut, f.session.State())
}

func TestSessionRequiresAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.session.RequireAccount()
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = f.session.SignMessage(ctx, types.SignMessageRequest{Message: "m"})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = f.session.SignAndSendTransactions(ctx, []types.Transaction{{ReceiverID: "wrap.near"}})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = f.session.GetBalance(ctx, "")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	f.conn.AssertNotCalled(t, "SignAndSend", mock.Anything)
}

func TestSessionSignMessage(t *testing.T) {
	f := newFixture(t)
	kp := f.signIn(t, "alice.testnet")

	signed, err := f.session.SignMessage(context.Background(), types.SignMessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, signer.StandardNEP413, signed.Standard)
	assert.Equal(t, kp.PublicKey(), signed.PublicKey)

	payload := signed.Payload.(types.NEP413Payload)
	assert.Equal(t, "intents.near", payload.Recipient)
}

func TestSessionViewMethod(t *testing.T) {
	f := newFixture(t)
	f.conn.On("CallFunction", "intents.near", "mt_balance_of", `{"account_id":"alice.testnet","token_id":"nep141:wrap.near"}`).
		Return([]byte(`"1500"`), nil).Once()
	f.conn.On("CallFunction", "intents.near", "has_public_key", `{"account_id":"alice.testnet","public_key":"ed25519:pk"}`).
		Return([]byte(`true`), nil).Once()

	balance, err := f.session.GetTokenBalance(context.Background(), "alice.testnet", "nep141:wrap.near")
	require.NoError(t, err)
	assert.Equal(t, "1500", balance)

	has, err := f.session.HasPublicKey(context.Background(), "alice.testnet", "ed25519:pk")
	require.NoError(t, err)
	assert.True(t, has)

	assert.Equal(t, 1, f.dials)
	f.conn.AssertExpectations(t)
}

func TestSessionGetBalance(t *testing.T) {
	f := newFixture(t)
	f.conn.On("ViewAccount", "alice.testnet").Return(&client.AccountView{Amount: "2500000000000000000000000"}, nil)

	balance, err := f.session.GetBalance(context.Background(), "alice.testnet")
	require.NoError(t, err)
	assert.Equal(t, "2.5", balance)
}

func TestSessionCallMethod(t *testing.T) {
	f := newFixture(t)
	kp := f.signIn(t, "alice.testnet")

	expected := types.Transaction{
		ReceiverID: "intents.near",
		Actions: []types.Action{types.NewFunctionCall("add_public_key", map[string]interface{}{
			"public_key": kp.PublicKey(),
		}, types.DefaultGas, "1")},
	}
	f.conn.On("SignAndSend", expected).Return(outcome(`"done"`), nil).Once()

	result, err := f.session.RegisterPublicKey(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	f.conn.AssertExpectations(t)
}

func TestSessionGetTransactionResult(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice.testnet")
	f.conn.On("TxStatus", "hash1", "alice.testnet").Return(outcome(`{"ok":true}`), nil)

	result, err := f.session.GetTransactionResult(context.Background(), "hash1")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true}, result)
}

func TestSessionReconnectsAfterAccountChange(t *testing.T) {
	f := newFixture(t)
	f.conn.On("ViewAccessKeyList", mock.Anything).Return([]types.AccessKey{}, nil)

	f.signIn(t, "alice.testnet")
	_, err := f.session.GetAccessKeys(context.Background(), "")
	require.NoError(t, err)

	f.signIn(t, "bob.testnet")
	_, err = f.session.GetAccessKeys(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, f.dials)
	f.conn.AssertCalled(t, "ViewAccessKeyList", "alice.testnet")
	f.conn.AssertCalled(t, "ViewAccessKeyList", "bob.testnet")
}

func TestSessionRefreshPicksUpRotatedKey(t *testing.T) {
	f := newFixture(t)
	f.conn.On("ViewAccessKeyList", mock.Anything).Return([]types.AccessKey{}, nil)

	old := f.signIn(t, "alice.testnet")
	pub, err := f.session.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, old.PublicKey(), pub)
	_, err = f.session.GetAccessKeys(context.Background(), "")
	require.NoError(t, err)

	rotated, err := signer.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, f.keystore.Save(Credentials{AccountID: "alice.testnet", PrivateKey: rotated.SecretKey()}))
	f.session.Refresh()

	pub, err = f.session.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, rotated.PublicKey(), pub)
	_, err = f.session.GetAccessKeys(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.dials)

	f.session.Refresh()
	_, err = f.session.GetAccessKeys(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.dials)
}
