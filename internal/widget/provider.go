// Package widget implements the widget side of the counter: a timeline
// provider that re-reads the shared value, a reloader that notices writes
// made by the other process, and the view model the app keeps in memory.
package widget

import (
	"fmt"
	"time"
)

// DefaultRefreshInterval is how long a timeline stays valid before the host
// asks for a new one.
const DefaultRefreshInterval = 5 * time.Minute

// Counter is the part of counter.Store the widget needs.
type Counter interface {
	Value() int
	Increment() (int, error)
	Decrement() (int, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Entry is one rendered state of the widget.
type Entry struct {
	Date    time.Time `json:"date"`
	Counter int       `json:"counter"`
}

// Timeline is the set of entries to show and when to ask for the next one.
type Timeline struct {
	Entries    []Entry   `json:"entries"`
	NextUpdate time.Time `json:"next_update"`
}

// Intent is a widget button action.
type Intent string

const (
	IntentIncrement Intent = "increment"
	IntentDecrement Intent = "decrement"
)

// Provider builds timeline entries from the live counter value.
type Provider struct {
	counter  Counter
	clock    Clock
	interval time.Duration
}

// NewProvider creates a Provider. If interval is <= 0 it defaults to
// DefaultRefreshInterval.
func NewProvider(counter Counter, interval time.Duration) *Provider {
	return NewProviderWithClock(counter, realClock{}, interval)
}

// NewProviderWithClock creates a Provider with a custom clock (for testing).
func NewProviderWithClock(counter Counter, clock Clock, interval time.Duration) *Provider {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Provider{counter: counter, clock: clock, interval: interval}
}

// Placeholder returns the entry shown before any data is available.
func (p *Provider) Placeholder() Entry {
	return Entry{Date: p.clock.Now(), Counter: 0}
}

// Snapshot returns an entry with the current value.
func (p *Provider) Snapshot() Entry {
	return Entry{Date: p.clock.Now(), Counter: p.counter.Value()}
}

// Timeline returns a single-entry timeline that expires after the refresh
// interval.
func (p *Provider) Timeline() Timeline {
	now := p.clock.Now()
	return Timeline{
		Entries:    []Entry{{Date: now, Counter: p.counter.Value()}},
		NextUpdate: now.Add(p.interval),
	}
}

// Perform runs a button intent and returns the entry to show afterwards.
// The counter store fires the reload itself.
func (p *Provider) Perform(intent Intent) (Entry, error) {
	var (
		v   int
		err error
	)
	switch intent {
	case IntentIncrement:
		v, err = p.counter.Increment()
	case IntentDecrement:
		v, err = p.counter.Decrement()
	default:
		return Entry{}, fmt.Errorf("unknown intent %q", intent)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("performing %s: %w", intent, err)
	}
	return Entry{Date: p.clock.Now(), Counter: v}, nil
}
