// Package counter holds the shared counter state and the settings policy
// that both the app and the widget embed.
package counter

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// StoreDeps holds the collaborators of a Store. Backend and Settings are
// required; the rest may be nil.
type StoreDeps struct {
	Backend   Backend
	Settings  *SettingsStore
	Refresher Refresher
	Feedback  Feedback
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Store maintains the counter value under the active settings policy.
// It keeps no copy of the value: every call reads the backend.
type Store struct {
	backend   Backend
	settings  *SettingsStore
	refresher Refresher
	feedback  Feedback
	metrics   *Metrics
	logger    *slog.Logger

	// serializes read-modify-write within this process; other processes
	// race with last-writer-wins.
	mu sync.Mutex
}

// NewStore creates a Store from deps.
func NewStore(deps StoreDeps) *Store {
	s := &Store{
		backend:   deps.Backend,
		settings:  deps.Settings,
		refresher: deps.Refresher,
		feedback:  deps.Feedback,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	if s.refresher == nil {
		s.refresher = nopRefresher{}
	}
	if s.feedback == nil {
		s.feedback = nopFeedback{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Value returns the persisted value, or 0 if it was never set or cannot be read.
func (s *Store) Value() int {
	v, ok, err := s.backend.GetInt(CounterKey)
	if err != nil {
		s.logger.Warn("reading counter failed, treating as absent", "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	return v
}

// Increment adds the step, clamping at MaxValue when one is set.
func (s *Store) Increment() (int, error) {
	return s.mutate("increment", func(current int, settings Settings) (int, bound) {
		return applyIncrement(current, settings)
	}, true)
}

// Decrement subtracts the step. MinValue takes precedence over the
// AllowNegative floor.
func (s *Store) Decrement() (int, error) {
	return s.mutate("decrement", func(current int, settings Settings) (int, bound) {
		return applyDecrement(current, settings)
	}, true)
}

// Reset writes DefaultValue. The result is not clamped, so an inconsistent
// DefaultValue is written as is.
func (s *Store) Reset() (int, error) {
	return s.mutate("reset", func(_ int, settings Settings) (int, bound) {
		return settings.DefaultValue, boundNone
	}, true)
}

// Set persists v without applying any policy.
func (s *Store) Set(v int) error {
	_, err := s.mutate("set", func(int, Settings) (int, bound) {
		return v, boundNone
	}, false)
	return err
}

// Refresh re-reads the persisted value. The store itself never caches, so
// this only exists for presentation layers that do.
func (s *Store) Refresh() int {
	return s.Value()
}

// Settings returns the active settings.
func (s *Store) Settings() Settings {
	return s.settings.Settings()
}

func (s *Store) mutate(op string, apply func(int, Settings) (int, bound), withFeedback bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Value()
	settings := s.settings.Settings()
	next, clamped := apply(current, settings)

	if err := s.backend.SetInt(CounterKey, next); err != nil {
		return current, fmt.Errorf("%s: writing counter: %w", op, err)
	}
	s.metrics.observe(op, clamped, next)
	s.logger.Debug("counter updated", "op", op, "from", current, "to", next, "clamped", string(clamped))

	s.refresher.NotifyRefreshNeeded()
	if withFeedback {
		if settings.HapticEnabled {
			s.feedback.NotifyFeedback(FeedbackHaptic)
		}
		if settings.SoundEnabled {
			s.feedback.NotifyFeedback(FeedbackSound)
		}
	}
	return next, nil
}

// bound names the limit that clamped a result.
type bound string

const (
	boundNone bound = ""
	boundMax  bound = "max"
	boundMin  bound = "min"
	boundZero bound = "zero"
)

func applyIncrement(current int, s Settings) (int, bound) {
	candidate := addSaturating(current, s.StepValue)
	if s.MaxValue != nil && candidate > *s.MaxValue {
		return *s.MaxValue, boundMax
	}
	return candidate, boundNone
}

func applyDecrement(current int, s Settings) (int, bound) {
	candidate := subSaturating(current, s.StepValue)
	switch {
	case s.MinValue != nil && candidate < *s.MinValue:
		return *s.MinValue, boundMin
	case !s.AllowNegative && candidate < 0:
		return 0, boundZero
	default:
		return candidate, boundNone
	}
}

func addSaturating(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}

func subSaturating(a, b int) int {
	if b > 0 && a < math.MinInt+b {
		return math.MinInt
	}
	if b < 0 && a > math.MaxInt+b {
		return math.MaxInt
	}
	return a - b
}
