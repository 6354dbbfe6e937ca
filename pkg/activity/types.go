package activity

import (
	"encoding/json"
	"time"
)

// Action names recorded in the journal
const (
	ActionDeposit  = "deposit"
	ActionSwap     = "swap"
	ActionWithdraw = "withdraw"
	ActionRegister = "register_key"
)

// Status of a recorded operation
type Status string

const (
	StatusSubmitted Status = "submitted" // Accepted by the relay or chain
	StatusSettled   Status = "settled"   // Relay reported settlement
	StatusFailed    Status = "failed"    // Rejected locally or by the relay
)

// Entry is one operation in the journal
type Entry struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	AccountID  string          `json:"account_id,omitempty"`
	Amount     string          `json:"amount,omitempty"`
	Status     Status          `json:"status"`
	IntentHash string          `json:"intent_hash,omitempty"`
	TxHash     string          `json:"tx_hash,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
	Created    time.Time       `json:"created"`
	Updated    time.Time       `json:"updated"`
}

// IsFinal reports whether the entry will not change anymore
func (e *Entry) IsFinal() bool {
	return e.Status == StatusSettled || e.Status == StatusFailed
}
