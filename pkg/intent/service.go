package intent

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"divvy/pkg/activity"
	"divvy/pkg/client"
	"divvy/pkg/logger"
	"divvy/pkg/parser"
	"divvy/pkg/quote"
	"divvy/pkg/types"
)

// Session is the wallet session the service acts for
type Session interface {
	RequireAccount() (string, error)
	SignMessage(ctx context.Context, req types.SignMessageRequest) (*types.SignedData, error)
	SignAndSendTransactions(ctx context.Context, txs []types.Transaction) ([]json.RawMessage, error)
}

// Publisher submits signed intents to the relay
type Publisher interface {
	PublishIntent(ctx context.Context, intent types.PublishIntent) (*client.RPCResponse, error)
}

// QuoteSource fetches the best quote for a request
type QuoteSource interface {
	Fetch(ctx context.Context, req types.QuoteRequest) types.QuoteResult
}

// Recorder stores operation results
type Recorder interface {
	Record(action, accountID, amount string, response json.RawMessage, errMsg string) (*activity.Entry, error)
}

// Result is the outcome of a deposit, swap or withdraw. Failures carry the
// error text instead of a response.
type Result struct {
	Action   string
	Response json.RawMessage
	Error    string
}

// Failed reports whether the operation failed
func (r Result) Failed() bool {
	return r.Error != ""
}

// MarshalJSON encodes a failure as {"error": "..."} and a success as the
// response received
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	if len(r.Response) == 0 {
		return []byte("null"), nil
	}
	return r.Response, nil
}

// IntentHash returns result.intent_hash of a publish_intent response
func (r Result) IntentHash() string {
	var body struct {
		Result struct {
			IntentHash string `json:"intent_hash"`
		} `json:"result"`
	}
	if err := json.Unmarshal(r.Response, &body); err != nil {
		return ""
	}
	return body.Result.IntentHash
}

// Service runs the deposit, swap and withdraw flows
type Service struct {
	session Session
	builder *Builder
	quotes  QuoteSource
	relay   Publisher
	journal Recorder
	log     *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithJournal records every result in r
func WithJournal(r Recorder) ServiceOption {
	return func(s *Service) { s.journal = r }
}

// WithLogger replaces the global logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates an intent service
func NewService(session Session, builder *Builder, quotes QuoteSource, relay Publisher, opts ...ServiceOption) *Service {
	s := &Service{
		session: session,
		builder: builder,
		quotes:  quotes,
		relay:   relay,
		log:     logger.Log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit wraps amountNEAR and deposits it into the verifying contract
func (s *Service) Deposit(ctx context.Context, amountNEAR string) Result {
	return s.run(ctx, activity.ActionDeposit, amountNEAR, func(accountID string) (json.RawMessage, error) {
		tx, err := s.builder.BuildDeposit(amountNEAR)
		if err != nil {
			return nil, err
		}

		outcomes, err := s.session.SignAndSendTransactions(ctx, []types.Transaction{tx})
		if err != nil {
			return nil, err
		}
		return json.Marshal(outcomes)
	})
}

// Swap quotes amountNEAR of the input asset, signs the resulting intent
// and publishes it with the quote hash
func (s *Service) Swap(ctx context.Context, amountNEAR string) Result {
	return s.run(ctx, activity.ActionSwap, amountNEAR, func(accountID string) (json.RawMessage, error) {
		req, err := s.builder.QuoteRequest(amountNEAR)
		if err != nil {
			return nil, err
		}

		best := s.quotes.Fetch(ctx, req).Best
		if best.IsZero() {
			return nil, quote.ErrNoQuote
		}

		plan, err := s.builder.BuildSwap(accountID, best)
		if err != nil {
			return nil, err
		}

		signReq, err := plan.SignRequest(s.builder.Settings().VerifyingContract)
		if err != nil {
			return nil, err
		}

		s.log.Debug("publishing swap",
			zap.String("account", accountID),
			zap.String("quote_hash", best.QuoteHash),
			zap.String("amount_in", best.AmountIn),
			zap.String("net_out", plan.NetOut),
			zap.String("fee", plan.Fee))

		return s.publish(ctx, signReq, []string{best.QuoteHash})
	})
}

// Withdraw signs and publishes a withdraw of amount of the configured token
func (s *Service) Withdraw(ctx context.Context, amount string) Result {
	return s.run(ctx, activity.ActionWithdraw, amount, func(accountID string) (json.RawMessage, error) {
		payload, err := s.builder.BuildWithdraw(accountID, amount)
		if err != nil {
			return nil, err
		}

		wrapped, err := s.builder.WrapWithdraw(accountID, payload)
		if err != nil {
			return nil, err
		}

		signReq, err := wrapped.SignRequest(s.builder.Settings().VerifyingContract)
		if err != nil {
			return nil, err
		}

		return s.publish(ctx, signReq, nil)
	})
}

func (s *Service) publish(ctx context.Context, req types.SignMessageRequest, quoteHashes []string) (json.RawMessage, error) {
	signed, err := s.session.SignMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := s.relay.PublishIntent(ctx, types.PublishIntent{
		SignedData:  *signed,
		QuoteHashes: quoteHashes,
	})
	if err != nil {
		return nil, err
	}
	return resp.Raw, nil
}

// run requires a signed-in account, converts any failure into a Result and
// records the outcome
func (s *Service) run(ctx context.Context, action, amount string, op func(accountID string) (json.RawMessage, error)) Result {
	result := Result{Action: action}

	accountID, err := s.session.RequireAccount()
	if err == nil {
		result.Response, err = op(accountID)
	}

	if err != nil {
		result.Response = nil
		result.Error = err.Error()
		level := s.log.Error
		if errors.Is(err, parser.ErrInvalidAmount) || errors.Is(err, quote.ErrNoQuote) {
			level = s.log.Warn
		}
		level(action+" intent failed", zap.String("account", accountID), zap.String("amount", amount), zap.Error(err))
	} else {
		s.log.Info(action+" intent submitted", zap.String("account", accountID), zap.String("amount", amount))
	}

	if s.journal != nil {
		if _, recErr := s.journal.Record(action, accountID, amount, result.Response, result.Error); recErr != nil {
			s.log.Warn("failed to record activity", zap.String("action", action), zap.Error(recErr))
		}
	}

	return result
}
