package activity

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity.json")
	j, err := NewJournal(path)
	require.NoError(t, err)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return j, path
}

func TestRecordAndReload(t *testing.T) {
	j, path := newTestJournal(t)

	swap, err := j.Record(ActionSwap, "alice.near", "1.5",
		json.RawMessage(`{"jsonrpc":"2.0","id":"dontcare","result":{"status":"OK","intent_hash":"ih1"}}`), "")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, swap.Status)
	assert.Equal(t, "ih1", swap.IntentHash)
	assert.NotEmpty(t, swap.ID)

	failed, err := j.Record(ActionWithdraw, "", "10", nil, "not signed in")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.True(t, failed.IsFinal())

	reloaded, err := NewJournal(path)
	require.NoError(t, err)

	entries := reloaded.List()
	require.Len(t, entries, 2)
	assert.Equal(t, swap.ID, entries[0].ID)
	assert.Equal(t, failed.ID, entries[1].ID)
	assert.Equal(t, "not signed in", entries[1].Error)
	assert.JSONEq(t, string(swap.Response), string(entries[0].Response))
}

func TestListByActionAndPending(t *testing.T) {
	j, _ := newTestJournal(t)

	_, err := j.Record(ActionDeposit, "alice.near", "1", json.RawMessage(`[{}]`), "")
	require.NoError(t, err)
	swap, err := j.Record(ActionSwap, "alice.near", "1", json.RawMessage(`{"result":{"intent_hash":"ih"}}`), "")
	require.NoError(t, err)

	assert.Len(t, j.ListByAction(ActionDeposit), 1)
	assert.Len(t, j.ListByAction(ActionWithdraw), 0)

	pending := j.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, swap.ID, pending[0].ID)

	require.NoError(t, j.UpdateStatus(swap.ID, StatusSettled, "txhash", ""))
	assert.Empty(t, j.Pending())

	found, err := j.FindByIntentHash("ih")
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, found.Status)
	assert.Equal(t, "txhash", found.TxHash)
	assert.True(t, found.Updated.After(found.Created))
}

func TestUpdateStatusUnknown(t *testing.T) {
	j, _ := newTestJournal(t)
	assert.Error(t, j.UpdateStatus("missing", StatusSettled, "", ""))

	_, err := j.FindByIntentHash("nope")
	assert.Error(t, err)
}

func TestListReturnsCopies(t *testing.T) {
	j, _ := newTestJournal(t)
	entry, err := j.Record(ActionSwap, "alice.near", "1", nil, "")
	require.NoError(t, err)

	listed := j.List()
	listed[0].Status = StatusFailed

	stored, err := j.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, stored.Status)
}

func TestNewStorageRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.json")
	require.NoError(t, writeFile(path, "{not json"))

	_, err := NewStorage(path)
	assert.Error(t, err)
}
