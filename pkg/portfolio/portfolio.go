// Package portfolio serves the mocked portfolio and allowance data exposed
// to the assistant. Nothing here is persisted.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	historyDays   = 7
	day           = 24 * time.Hour
	baseValue     = 2240.0
	swingAmount   = 100.0
	jitterAmount  = 50.0
	swingPeriodMs = 8.64e7

	// Placeholder identity echoed when the caller metadata lacks a field
	UnknownAccount = "unknown"
)

var (
	// ErrMissingFields is returned when an allowance lacks a required field
	ErrMissingFields = errors.New("Missing required fields")
	// ErrCreateFailed is returned when an allowance request cannot be read
	ErrCreateFailed = errors.New("Failed to create allowance")
)

// TokenBalance is one holding of the mocked portfolio
type TokenBalance struct {
	Symbol   string `json:"symbol"`
	Balance  string `json:"balance"`
	USDValue string `json:"usdValue"`
}

// Identity is the caller metadata forwarded by the assistant runtime
type Identity struct {
	AccountID  string `json:"accountId"`
	EVMAddress string `json:"evmAddress"`
}

// Balance is the get-balance response
type Balance struct {
	Prices        [][2]float64   `json:"prices"`
	Tokens        []TokenBalance `json:"tokens"`
	TotalUSDValue string         `json:"totalUsdValue"`
	AccountID     string         `json:"accountId,omitempty"`
	EVMAddress    string         `json:"evmAddress,omitempty"`
}

// Holdings returns the fixed token balances
func Holdings() []TokenBalance {
	return []TokenBalance{
		{Symbol: "NEAR", Balance: "100.5", USDValue: "550.75"},
		{Symbol: "ETH", Balance: "0.1", USDValue: "250.00"},
	}
}

// TotalUSDValue is the fixed portfolio total
const TotalUSDValue = "800.75"

// Portfolio generates mock balances. The jitter generator is seeded so
// responses can be reproduced.
type Portfolio struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Portfolio
type Option func(*Portfolio)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Portfolio) { p.now = now }
}

// New creates a portfolio whose jitter comes from seed. A zero seed uses
// the current time.
func New(seed int64, opts ...Option) *Portfolio {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p := &Portfolio{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Balance returns seven daily portfolio values ending now plus the fixed
// holdings. When identity is not nil its fields are echoed, with
// placeholders for empty ones.
func (p *Portfolio) Balance(identity *Identity) Balance {
	now := p.now().UnixMilli()

	p.mu.Lock()
	prices := make([][2]float64, historyDays)
	for i := range prices {
		ts := now - int64(historyDays-1-i)*day.Milliseconds()
		value := baseValue + math.Sin(float64(ts)/swingPeriodMs)*swingAmount + p.rng.Float64()*jitterAmount
		prices[i] = [2]float64{float64(ts), value}
	}
	p.mu.Unlock()

	balance := Balance{
		Prices:        prices,
		Tokens:        Holdings(),
		TotalUSDValue: TotalUSDValue,
	}

	if identity != nil {
		balance.AccountID = placeholder(identity.AccountID)
		balance.EVMAddress = placeholder(identity.EVMAddress)
	}
	return balance
}

func placeholder(v string) string {
	if v == "" {
		return UnknownAccount
	}
	return v
}

// CreateAllowance validates cfg and describes the allowance. Nothing is
// stored.
func (p *Portfolio) CreateAllowance(cfg AllowanceConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Allowance created: %s %s when portfolio grows %s%% (%s)",
		cfg.AllowanceAmount, cfg.Stablecoin, cfg.TargetGrowthRate, cfg.Frequency), nil
}

// RemoveAllowance always succeeds
func (p *Portfolio) RemoveAllowance() string {
	return "Allowance removed successfully"
}
