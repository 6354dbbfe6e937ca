package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Journal records operation results and tracks their settlement
type Journal struct {
	storage *Storage
	now     func() time.Time
}

// NewJournal opens the journal stored at path
func NewJournal(path string) (*Journal, error) {
	storage, err := NewStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return &Journal{storage: storage, now: time.Now}, nil
}

// Record appends an operation outcome. A non-empty errMsg marks it failed.
func (j *Journal) Record(action, accountID, amount string, response json.RawMessage, errMsg string) (*Entry, error) {
	now := j.now().UTC()

	entry := &Entry{
		ID:        uuid.New().String(),
		Action:    action,
		AccountID: accountID,
		Amount:    amount,
		Status:    StatusSubmitted,
		Response:  response,
		Error:     errMsg,
		Created:   now,
		Updated:   now,
	}
	if errMsg != "" {
		entry.Status = StatusFailed
	}
	entry.IntentHash = intentHash(response)

	if err := j.storage.Put(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateStatus records the relay status of a published intent
func (j *Journal) UpdateStatus(id string, status Status, txHash, errMsg string) error {
	entry, err := j.storage.Get(id)
	if err != nil {
		return err
	}

	entry.Status = status
	entry.Updated = j.now().UTC()
	if txHash != "" {
		entry.TxHash = txHash
	}
	if errMsg != "" {
		entry.Error = errMsg
	}
	return j.storage.Put(entry)
}

// FindByIntentHash returns the entry of a published intent
func (j *Journal) FindByIntentHash(hash string) (*Entry, error) {
	entries := j.storage.List(func(e *Entry) bool { return e.IntentHash == hash })
	if len(entries) == 0 {
		return nil, fmt.Errorf("no activity for intent %s", hash)
	}
	return entries[len(entries)-1], nil
}

// Get returns an entry by id
func (j *Journal) Get(id string) (*Entry, error) {
	return j.storage.Get(id)
}

// List returns every entry, oldest first
func (j *Journal) List() []*Entry {
	return j.storage.List(nil)
}

// ListByAction returns entries of one action, oldest first
func (j *Journal) ListByAction(action string) []*Entry {
	return j.storage.List(func(e *Entry) bool { return e.Action == action })
}

// Pending returns entries still waiting for settlement
func (j *Journal) Pending() []*Entry {
	return j.storage.List(func(e *Entry) bool { return !e.IsFinal() && e.IntentHash != "" })
}

// GetStorage returns the underlying storage
func (j *Journal) GetStorage() *Storage {
	return j.storage
}

// intentHash extracts result.intent_hash from a publish_intent response
func intentHash(response json.RawMessage) string {
	if len(response) == 0 {
		return ""
	}
	var body struct {
		Result struct {
			IntentHash string `json:"intent_hash"`
		} `json:"result"`
	}
	if err := json.Unmarshal(response, &body); err != nil {
		return ""
	}
	return body.Result.IntentHash
}
