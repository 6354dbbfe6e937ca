package intent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"divvy/pkg/activity"
	"divvy/pkg/logger"
	"divvy/pkg/types"
)

const (
	DefaultWatchInterval = 5 * time.Second
	MinWatchInterval     = time.Second
)

// StatusSource reports the relay status of a published intent
type StatusSource interface {
	GetStatus(ctx context.Context, intentHash string) (*types.IntentStatus, error)
}

// StatusRecorder stores settlement updates
type StatusRecorder interface {
	FindByIntentHash(hash string) (*activity.Entry, error)
	UpdateStatus(id string, status activity.Status, txHash, errMsg string) error
}

// Watcher polls the relay until an intent reaches a terminal status
type Watcher struct {
	relay    StatusSource
	interval time.Duration
	journal  StatusRecorder
}

// NewWatcher creates a watcher polling every interval
func NewWatcher(relay StatusSource, interval time.Duration, journal StatusRecorder) *Watcher {
	if interval < MinWatchInterval {
		interval = MinWatchInterval
	}
	return &Watcher{relay: relay, interval: interval, journal: journal}
}

// Wait polls until the intent is terminal or ctx is done. onUpdate, if set,
// sees every status received. Transient errors are logged and retried on
// the next tick.
func (w *Watcher) Wait(ctx context.Context, intentHash string, onUpdate func(*types.IntentStatus)) (*types.IntentStatus, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		status, err := w.relay.GetStatus(ctx, intentHash)
		if err != nil {
			logger.Debug("status check failed", zap.String("intent_hash", intentHash), zap.Error(err))
		} else {
			if onUpdate != nil {
				onUpdate(status)
			}
			if status.IsTerminal() {
				w.record(intentHash, status)
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped watching intent %s: %w", intentHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Check fetches the status once and records it when terminal
func (w *Watcher) Check(ctx context.Context, intentHash string) (*types.IntentStatus, error) {
	status, err := w.relay.GetStatus(ctx, intentHash)
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		w.record(intentHash, status)
	}
	return status, nil
}

// record stores a terminal status in the journal when the intent is known
func (w *Watcher) record(intentHash string, status *types.IntentStatus) {
	if w.journal == nil {
		return
	}

	entry, err := w.journal.FindByIntentHash(intentHash)
	if err != nil {
		return
	}

	newStatus := activity.StatusSettled
	errMsg := ""
	if status.Status != "SETTLED" {
		newStatus = activity.StatusFailed
		errMsg = status.Status
	}

	if err := w.journal.UpdateStatus(entry.ID, newStatus, status.Data.Hash, errMsg); err != nil {
		logger.Warn("failed to update activity", zap.String("id", entry.ID), zap.Error(err))
	}
}
