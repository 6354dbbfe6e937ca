package intent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"divvy/pkg/activity"
	"divvy/pkg/client"
	"divvy/pkg/quote"
	"divvy/pkg/types"
)

var errNotSignedIn = errors.New("not signed in")

type mockSession struct {
	mock.Mock
}

func (m *mockSession) RequireAccount() (string, error) {
	ret := m.Called()
	return ret.String(0), ret.Error(1)
}

func (m *mockSession) SignMessage(ctx context.Context, req types.SignMessageRequest) (*types.SignedData, error) {
	ret := m.Called(req)
	signed, _ := ret.Get(0).(*types.SignedData)
	return signed, ret.Error(1)
}

func (m *mockSession) SignAndSendTransactions(ctx context.Context, txs []types.Transaction) ([]json.RawMessage, error) {
	ret := m.Called(txs)
	out, _ := ret.Get(0).([]json.RawMessage)
	return out, ret.Error(1)
}

type stubQuotes struct {
	result types.QuoteResult
	calls  int
}

func (s *stubQuotes) Fetch(ctx context.Context, req types.QuoteRequest) types.QuoteResult {
	s.calls++
	return s.result
}

// recordingRelay is a fake relay endpoint that keeps publish_intent params
type recordingRelay struct {
	srv      *httptest.Server
	requests []client.RPCRequest
}

func newRecordingRelay(t *testing.T, reply string) *recordingRelay {
	t.Helper()
	r := &recordingRelay{}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var rpcReq client.RPCRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&rpcReq))
		r.requests = append(r.requests, rpcReq)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(r.srv.Close)
	return r
}

const publishReply = `{"jsonrpc":"2.0","id":"dontcare","result":{"status":"OK","intent_hash":"ih1"}}`

var signedData = &types.SignedData{
	Standard:  "nep413",
	Payload:   types.NEP413Payload{Message: "m", Nonce: "n", Recipient: "intents.near"},
	Signature: "ed25519:sig",
	PublicKey: "ed25519:pk",
}

func TestSwapPublishesSignedIntent(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)
	session.On("SignMessage", mock.MatchedBy(func(req types.SignMessageRequest) bool {
		return req.Recipient == "intents.near" && req.Message != ""
	})).Return(signedData, nil).Once()

	quotes := &stubQuotes{result: types.QuoteResult{Best: types.Quote{AmountIn: "1000", AmountOut: "500", QuoteHash: "qh"}}}
	relay := newRecordingRelay(t, publishReply)
	journal, err := activity.NewJournal(filepath.Join(t.TempDir(), "a.json"))
	require.NoError(t, err)

	svc := NewService(session, newTestBuilder(), quotes, client.NewRelayClient(relay.srv.URL), WithJournal(journal))
	result := svc.Swap(context.Background(), "1")

	require.False(t, result.Failed(), result.Error)
	assert.Equal(t, "swap", result.Action)
	assert.Equal(t, "ih1", result.IntentHash())

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, publishReply, string(encoded))

	require.Len(t, relay.requests, 1)
	req := relay.requests[0]
	assert.Equal(t, "dontcare", req.ID)
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "publish_intent", req.Method)

	params, err := json.Marshal(req.Params)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"signed_data": {
			"standard": "nep413",
			"payload": {"message":"m","nonce":"n","recipient":"intents.near"},
			"signature": "ed25519:sig",
			"public_key": "ed25519:pk"
		},
		"quote_hashes": ["qh"]
	}]`, string(params))

	entries := journal.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "ih1", entries[0].IntentHash)
	assert.Equal(t, activity.StatusSubmitted, entries[0].Status)
	session.AssertExpectations(t)
}

func TestSwapNotSignedIn(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("", errNotSignedIn)

	quotes := &stubQuotes{}
	relay := newRecordingRelay(t, publishReply)

	result := NewService(session, newTestBuilder(), quotes, client.NewRelayClient(relay.srv.URL)).Swap(context.Background(), "1")

	assert.True(t, result.Failed())
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"not signed in"}`, string(encoded))
	assert.Empty(t, relay.requests)
	assert.Zero(t, quotes.calls)
	session.AssertNotCalled(t, "SignMessage", mock.Anything)
}

func TestSwapNoQuote(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)
	relay := newRecordingRelay(t, publishReply)

	result := NewService(session, newTestBuilder(), &stubQuotes{}, client.NewRelayClient(relay.srv.URL)).Swap(context.Background(), "1")

	assert.Equal(t, quote.ErrNoQuote.Error(), result.Error)
	assert.Empty(t, relay.requests)
}

func TestSwapInvalidAmount(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)

	quotes := &stubQuotes{}
	result := NewService(session, newTestBuilder(), quotes, client.NewRelayClient("http://127.0.0.1:0")).Swap(context.Background(), "abc")

	assert.True(t, result.Failed())
	assert.Zero(t, quotes.calls)
}

func TestSwapSigningRejected(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)
	session.On("SignMessage", mock.Anything).Return(nil, errors.New("user rejected")).Once()
	relay := newRecordingRelay(t, publishReply)

	quotes := &stubQuotes{result: types.QuoteResult{Best: types.Quote{AmountIn: "1", AmountOut: "100", QuoteHash: "q"}}}
	result := NewService(session, newTestBuilder(), quotes, client.NewRelayClient(relay.srv.URL)).Swap(context.Background(), "1")

	assert.Equal(t, "user rejected", result.Error)
	assert.Empty(t, relay.requests)
}

func TestSwapRelayUnreachable(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)
	session.On("SignMessage", mock.Anything).Return(signedData, nil)

	relay := newRecordingRelay(t, publishReply)
	relay.srv.Close()

	quotes := &stubQuotes{result: types.QuoteResult{Best: types.Quote{AmountIn: "1", AmountOut: "100", QuoteHash: "q"}}}
	result := NewService(session, newTestBuilder(), quotes, client.NewRelayClient(relay.srv.URL)).Swap(context.Background(), "1")

	assert.True(t, result.Failed())
	assert.Nil(t, result.Response)
}

func TestWithdrawIsSigned(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)

	var signed types.SignMessageRequest
	session.On("SignMessage", mock.Anything).Run(func(args mock.Arguments) {
		signed = args.Get(0).(types.SignMessageRequest)
	}).Return(signedData, nil).Once()

	relay := newRecordingRelay(t, publishReply)
	result := NewService(session, newTestBuilder(), &stubQuotes{}, client.NewRelayClient(relay.srv.URL)).Withdraw(context.Background(), "25")

	require.False(t, result.Failed(), result.Error)

	var msg types.IntentMessage
	require.NoError(t, json.Unmarshal([]byte(signed.Message), &msg))
	assert.Equal(t, "alice.near", msg.SignerID)
	require.Len(t, msg.Intents, 2)
	assert.Equal(t, "ft_withdraw", msg.Intents[0].Intent)
	assert.Equal(t, "25", msg.Intents[0].Amount)
	assert.Equal(t, "-25", msg.Intents[1].Diff["nep141:eth-0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48.omft.near"])

	params, err := json.Marshal(relay.requests[0].Params)
	require.NoError(t, err)
	assert.Contains(t, string(params), `"quote_hashes":[]`)
	assert.Contains(t, string(params), `"signed_data"`)
}

func TestWithdrawNotSignedIn(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("", errNotSignedIn)
	relay := newRecordingRelay(t, publishReply)

	result := NewService(session, newTestBuilder(), &stubQuotes{}, client.NewRelayClient(relay.srv.URL)).Withdraw(context.Background(), "25")

	assert.Equal(t, "not signed in", result.Error)
	assert.Empty(t, relay.requests)
}

func TestDeposit(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)
	session.On("SignAndSendTransactions", mock.MatchedBy(func(txs []types.Transaction) bool {
		return len(txs) == 1 &&
			txs[0].ReceiverID == "wrap.near" &&
			len(txs[0].Actions) == 2 &&
			txs[0].Actions[0].Params.MethodName == "near_deposit" &&
			txs[0].Actions[1].Params.MethodName == "ft_transfer_call"
	})).Return([]json.RawMessage{json.RawMessage(`{"status":{"SuccessValue":""}}`)}, nil).Once()

	result := NewService(session, newTestBuilder(), &stubQuotes{}, nil).Deposit(context.Background(), "0.5")

	require.False(t, result.Failed(), result.Error)
	assert.JSONEq(t, `[{"status":{"SuccessValue":""}}]`, string(result.Response))
	session.AssertExpectations(t)
}

func TestDepositWalletError(t *testing.T) {
	session := &mockSession{}
	session.On("RequireAccount").Return("alice.near", nil)
	session.On("SignAndSendTransactions", mock.Anything).Return(nil, errors.New("insufficient balance"))

	result := NewService(session, newTestBuilder(), &stubQuotes{}, nil).Deposit(context.Background(), "0.5")

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"insufficient balance"}`, string(encoded))
}
