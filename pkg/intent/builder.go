// Package intent builds, signs and publishes deposit, swap and withdraw
// intents.
package intent

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"divvy/pkg/parser"
	"divvy/pkg/types"
)

// ErrInvalidAmount is returned for malformed or out of range amounts
var ErrInvalidAmount = parser.ErrInvalidAmount

// DeadlineLayout is ISO-8601 UTC with milliseconds
const DeadlineLayout = "2006-01-02T15:04:05.000Z"

// ReferralMemo tags the fee transfer of a swap
const ReferralMemo = "referral_fee"

// Settings are the contracts, assets and accounts intents refer to
type Settings struct {
	WrapContract      string
	VerifyingContract string
	SwapInputAsset    string
	SwapOutputAsset   string
	ReferralAccount   string
	WithdrawToken     string
	WithdrawFromAsset string
	WithdrawToAsset   string
	WithdrawReferral  string
	Deadline          time.Duration
	MinDeadline       time.Duration
}

// DefaultSettings returns the mainnet contracts and a 60s deadline
func DefaultSettings() Settings {
	return Settings{
		WrapContract:      "wrap.near",
		VerifyingContract: "intents.near",
		SwapInputAsset:    "nep141:wrap.near",
		SwapOutputAsset:   "nep141:17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1",
		ReferralAccount:   "benevio-labs.near",
		WithdrawToken:     "17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1",
		WithdrawFromAsset: "nep141:eth-0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48.omft.near",
		WithdrawToAsset:   "nep141:17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1",
		WithdrawReferral:  "near-intents.intents-referral.near",
		Deadline:          60 * time.Second,
		MinDeadline:       60 * time.Second,
	}
}

// Builder assembles intent payloads. The clock and random source are
// injectable so payloads can be reproduced in tests.
type Builder struct {
	settings Settings
	now      func() time.Time
	random   io.Reader
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithClock replaces time.Now
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithRandom replaces crypto/rand as nonce source
func WithRandom(r io.Reader) BuilderOption {
	return func(b *Builder) { b.random = r }
}

// NewBuilder creates a builder
func NewBuilder(settings Settings, opts ...BuilderOption) *Builder {
	b := &Builder{
		settings: settings,
		now:      time.Now,
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Settings returns the builder settings
func (b *Builder) Settings() Settings {
	return b.settings
}

// BuildDeposit wraps amountNEAR and moves it into the verifying contract
// in one transaction: near_deposit then ft_transfer_call.
func (b *Builder) BuildDeposit(amountNEAR string) (types.Transaction, error) {
	yocto, err := parser.ParseNearAmount(amountNEAR)
	if err != nil {
		return types.Transaction{}, err
	}

	return types.Transaction{
		ReceiverID: b.settings.WrapContract,
		Actions: []types.Action{
			types.NewFunctionCall("near_deposit", nil, types.DefaultGas, yocto),
			types.NewFunctionCall("ft_transfer_call", map[string]interface{}{
				"receiver_id": b.settings.VerifyingContract,
				"amount":      yocto,
				"msg":         "",
			}, types.DefaultGas, "1"),
		},
	}, nil
}

// SwapPlan is a swap intent message ready to be signed
type SwapPlan struct {
	Message  types.IntentMessage
	Nonce    [32]byte
	Quote    types.Quote
	Fee      string
	NetOut   string
	In, Out  string
	Deadline time.Time
}

// QuoteRequest returns the relay quote request for swapping amountNEAR of
// the configured input asset
func (b *Builder) QuoteRequest(amountNEAR string) (types.QuoteRequest, error) {
	yocto, err := parser.ParseNearAmount(amountNEAR)
	if err != nil {
		return types.QuoteRequest{}, err
	}
	return types.QuoteRequest{
		InputAsset:    b.settings.SwapInputAsset,
		OutputAsset:   b.settings.SwapOutputAsset,
		ExactAmountIn: yocto,
		MinDeadlineMs: b.settings.MinDeadline.Milliseconds(),
	}, nil
}

// BuildSwap turns the best quote into a token_diff intent paying 1% of the
// output to the referral account through a separate transfer intent.
func (b *Builder) BuildSwap(signerID string, best types.Quote) (*SwapPlan, error) {
	if best.IsZero() {
		return nil, fmt.Errorf("cannot build swap: empty quote")
	}

	fee, net, err := parser.SplitReferralFee(best.AmountOut)
	if err != nil {
		return nil, err
	}
	if _, ok := new(big.Int).SetString(best.AmountIn, 10); !ok {
		return nil, fmt.Errorf("%w: quote amount_in '%s'", ErrInvalidAmount, best.AmountIn)
	}

	in := best.InputAsset
	if in == "" {
		in = b.settings.SwapInputAsset
	}
	out := best.OutputAsset
	if out == "" {
		out = b.settings.SwapOutputAsset
	}

	nonce, err := b.nonce()
	if err != nil {
		return nil, err
	}
	deadline := b.now().Add(b.settings.Deadline)

	plan := &SwapPlan{
		Nonce:    nonce,
		Quote:    best,
		Fee:      fee,
		NetOut:   net,
		In:       in,
		Out:      out,
		Deadline: deadline,
		Message: types.IntentMessage{
			SignerID:          signerID,
			Nonce:             base64.StdEncoding.EncodeToString(nonce[:]),
			VerifyingContract: b.settings.VerifyingContract,
			Deadline:          deadline.UTC().Format(DeadlineLayout),
			Intents: []types.Intent{
				{
					Intent: types.IntentTokenDiff,
					Diff: map[string]string{
						in:  "-" + best.AmountIn,
						out: net,
					},
					Referral: b.settings.ReferralAccount,
				},
				{
					Intent:     types.IntentTransfer,
					ReceiverID: b.settings.ReferralAccount,
					Tokens:     map[string]string{out: fee},
					Memo:       ReferralMemo,
				},
			},
		},
	}

	return plan, plan.Validate()
}

// Validate checks that the net output and the fee add up to the quoted
// output and that the input is debited exactly
func (p *SwapPlan) Validate() error {
	if len(p.Message.Intents) != 2 {
		return fmt.Errorf("swap has %d intents, expected 2", len(p.Message.Intents))
	}
	diff := p.Message.Intents[0].Diff
	if diff[p.In] != "-"+p.Quote.AmountIn {
		return fmt.Errorf("swap debits %s, expected -%s", diff[p.In], p.Quote.AmountIn)
	}

	net, ok1 := new(big.Int).SetString(diff[p.Out], 10)
	fee, ok2 := new(big.Int).SetString(p.Message.Intents[1].Tokens[p.Out], 10)
	total, ok3 := new(big.Int).SetString(p.Quote.AmountOut, 10)
	if !ok1 || !ok2 || !ok3 {
		return fmt.Errorf("%w: swap amounts are not integers", ErrInvalidAmount)
	}
	if new(big.Int).Add(net, fee).Cmp(total) != 0 {
		return fmt.Errorf("swap output %s + fee %s != quoted %s", net, fee, total)
	}
	return nil
}

// SignRequest is what the wallet signs for this swap
func (p *SwapPlan) SignRequest(recipient string) (types.SignMessageRequest, error) {
	return signRequest(p.Message, p.Nonce, recipient)
}

// WithdrawDiff is the token_diff half of a withdraw
type WithdrawDiff struct {
	Deadline string         `json:"deadline"`
	Intents  []types.Intent `json:"intents"`
}

// WithdrawPayload is the ft_withdraw intent plus the USDC token_diff that
// funds it. It encodes as a two-element JSON array.
type WithdrawPayload struct {
	Withdraw types.Intent
	Diff     WithdrawDiff
	Deadline time.Time
}

// MarshalJSON encodes the payload as [ft_withdraw, {deadline, intents}]
func (p *WithdrawPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Withdraw, p.Diff})
}

// BuildWithdraw withdraws amount of the configured token to signerID. An
// empty signerID is recorded as "unknown".
func (b *Builder) BuildWithdraw(signerID, amount string) (*WithdrawPayload, error) {
	if err := parser.ValidateRawAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	receiver := signerID
	if receiver == "" {
		receiver = "unknown"
	}
	deadline := b.now().Add(b.settings.Deadline)

	payload := &WithdrawPayload{
		Deadline: deadline,
		Withdraw: types.Intent{
			Intent:     types.IntentFtWithdraw,
			Token:      b.settings.WithdrawToken,
			ReceiverID: receiver,
			Amount:     amount,
			SignerID:   receiver,
		},
		Diff: WithdrawDiff{
			Deadline: deadline.UTC().Format(DeadlineLayout),
			Intents: []types.Intent{{
				Intent: types.IntentTokenDiff,
				Diff: map[string]string{
					b.settings.WithdrawFromAsset: "-" + amount,
					b.settings.WithdrawToAsset:   amount,
				},
				Referral: b.settings.WithdrawReferral,
			}},
		},
	}

	return payload, payload.Validate()
}

// Validate checks that the token_diff entries net to zero
func (p *WithdrawPayload) Validate() error {
	if len(p.Diff.Intents) != 1 {
		return fmt.Errorf("withdraw has %d token diffs, expected 1", len(p.Diff.Intents))
	}

	sum := decimal.Zero
	for asset, delta := range p.Diff.Intents[0].Diff {
		d, err := decimal.NewFromString(delta)
		if err != nil {
			return fmt.Errorf("%w: delta '%s' for %s", ErrInvalidAmount, delta, asset)
		}
		sum = sum.Add(d)
	}
	if !sum.IsZero() {
		return fmt.Errorf("withdraw token diff does not net to zero: %s", sum.String())
	}
	return nil
}

// WithdrawIntent is a withdraw wrapped into a signable intent message
type WithdrawIntent struct {
	Message types.IntentMessage
	Nonce   [32]byte
}

// WrapWithdraw wraps both halves of the payload into one intent message for
// signerID
func (b *Builder) WrapWithdraw(signerID string, p *WithdrawPayload) (*WithdrawIntent, error) {
	nonce, err := b.nonce()
	if err != nil {
		return nil, err
	}

	intents := make([]types.Intent, 0, 1+len(p.Diff.Intents))
	intents = append(intents, p.Withdraw)
	intents = append(intents, p.Diff.Intents...)

	return &WithdrawIntent{
		Nonce: nonce,
		Message: types.IntentMessage{
			SignerID:          signerID,
			Nonce:             base64.StdEncoding.EncodeToString(nonce[:]),
			VerifyingContract: b.settings.VerifyingContract,
			Deadline:          p.Diff.Deadline,
			Intents:           intents,
		},
	}, nil
}

// SignRequest is what the wallet signs for this withdraw
func (w *WithdrawIntent) SignRequest(recipient string) (types.SignMessageRequest, error) {
	return signRequest(w.Message, w.Nonce, recipient)
}

func signRequest(msg types.IntentMessage, nonce [32]byte, recipient string) (types.SignMessageRequest, error) {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return types.SignMessageRequest{}, fmt.Errorf("failed to encode intent message: %w", err)
	}
	return types.SignMessageRequest{
		Message:   string(encoded),
		Nonce:     nonce,
		Recipient: recipient,
	}, nil
}

func (b *Builder) nonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := io.ReadFull(b.random, nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}
