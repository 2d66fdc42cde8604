package widget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/tally/internal/counter"
)

// Source is the read side of the shared store.
type Source interface {
	GetString(key string) (val string, ok bool, err error)
}

// Reloader polls the shared store and fires a refresh when the persisted
// counter or settings change, so writes made by another process reach the
// observers in this one.
type Reloader struct {
	source    Source
	refresher counter.Refresher
	poll      time.Duration
	logger    *slog.Logger

	last   string
	primed bool
}

// NewReloader creates a Reloader. If pollInterval is <= 0, it defaults to 1s.
func NewReloader(source Source, refresher counter.Refresher, pollInterval time.Duration) *Reloader {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Reloader{
		source:    source,
		refresher: refresher,
		poll:      pollInterval,
		logger:    slog.Default(),
	}
}

// Run polls until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := r.RunOnce(); err != nil {
			r.logger.Warn("reloader poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.poll):
		}
	}
}

// RunOnce reads the store and fires a refresh if it changed since the last
// call. The first call only records the current state.
// Returns true if a refresh was fired.
func (r *Reloader) RunOnce() (bool, error) {
	fp, err := r.fingerprint()
	if err != nil {
		return false, err
	}
	if !r.primed {
		r.last, r.primed = fp, true
		return false, nil
	}
	if fp == r.last {
		return false, nil
	}
	r.last = fp
	r.logger.Debug("shared store changed, reloading")
	r.refresher.NotifyRefreshNeeded()
	return true, nil
}

func (r *Reloader) fingerprint() (string, error) {
	value, ok, err := r.source.GetString(counter.CounterKey)
	if err != nil {
		return "", fmt.Errorf("reading counter: %w", err)
	}
	if !ok {
		value = "-"
	}
	settings, ok, err := r.source.GetString(counter.SettingsKey)
	if err != nil {
		return "", fmt.Errorf("reading settings: %w", err)
	}
	if !ok {
		settings = "-"
	}
	return value + "\x00" + settings, nil
}
