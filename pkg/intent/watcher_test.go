package intent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/pkg/activity"
	"divvy/pkg/types"
)

type scriptedStatus struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedStatus) GetStatus(ctx context.Context, intentHash string) (*types.IntentStatus, error) {
	i := s.calls
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &types.IntentStatus{IntentHash: intentHash, Status: s.replies[i]}, nil
}

func TestWatcherWaitsForTerminalStatus(t *testing.T) {
	relay := &scriptedStatus{
		replies: []string{"PENDING", "", "TX_BROADCASTED", "SETTLED"},
		errs:    []error{nil, errors.New("timeout"), nil, nil},
	}

	journal, err := activity.NewJournal(filepath.Join(t.TempDir(), "a.json"))
	require.NoError(t, err)
	entry, err := journal.Record(activity.ActionSwap, "alice.near", "1", json.RawMessage(`{"result":{"intent_hash":"ih"}}`), "")
	require.NoError(t, err)

	var seen []string
	w := NewWatcher(relay, time.Millisecond, journal)
	w.interval = time.Millisecond

	status, err := w.Wait(context.Background(), "ih", func(s *types.IntentStatus) { seen = append(seen, s.Status) })
	require.NoError(t, err)
	assert.Equal(t, "SETTLED", status.Status)
	assert.Equal(t, []string{"PENDING", "TX_BROADCASTED", "SETTLED"}, seen)

	updated, err := journal.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, activity.StatusSettled, updated.Status)
}

func TestWatcherRecordsInvalidIntent(t *testing.T) {
	journal, err := activity.NewJournal(filepath.Join(t.TempDir(), "a.json"))
	require.NoError(t, err)
	entry, err := journal.Record(activity.ActionWithdraw, "alice.near", "1", json.RawMessage(`{"result":{"intent_hash":"bad"}}`), "")
	require.NoError(t, err)

	w := NewWatcher(&scriptedStatus{replies: []string{"NOT_FOUND_OR_NOT_VALID"}}, time.Second, journal)
	_, err = w.Wait(context.Background(), "bad", nil)
	require.NoError(t, err)

	updated, err := journal.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, activity.StatusFailed, updated.Status)
	assert.Equal(t, "NOT_FOUND_OR_NOT_VALID", updated.Error)
}

func TestWatcherStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w := NewWatcher(&scriptedStatus{replies: []string{"PENDING"}}, time.Millisecond, nil)
	w.interval = time.Millisecond

	_, err := w.Wait(ctx, "ih", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewWatcherClampsInterval(t *testing.T) {
	w := NewWatcher(&scriptedStatus{}, time.Nanosecond, nil)
	assert.Equal(t, MinWatchInterval, w.interval)
}

func TestWatcherCheck(t *testing.T) {
	journal, err := activity.NewJournal(filepath.Join(t.TempDir(), "a.json"))
	require.NoError(t, err)
	entry, err := journal.Record(activity.ActionSwap, "alice.near", "1", json.RawMessage(`{"result":{"intent_hash":"ih"}}`), "")
	require.NoError(t, err)

	relay := &scriptedStatus{replies: []string{"PENDING", "SETTLED"}}
	w := NewWatcher(relay, time.Second, journal)

	status, err := w.Check(context.Background(), "ih")
	require.NoError(t, err)
	assert.Equal(t, "PENDING", status.Status)
	pending, err := journal.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, activity.StatusSubmitted, pending.Status)

	status, err = w.Check(context.Background(), "ih")
	require.NoError(t, err)
	assert.Equal(t, "SETTLED", status.Status)
	settled, err := journal.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, activity.StatusSettled, settled.Status)

	_, err = w.Check(context.Background(), "ih")
	require.NoError(t, err)

	failing := NewWatcher(&scriptedStatus{replies: []string{""}, errs: []error{errors.New("down")}}, time.Second, nil)
	_, err = failing.Check(context.Background(), "ih")
	assert.Error(t, err)
}
