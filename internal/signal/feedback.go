package signal

import (
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/kalambet/tally/internal/counter"
)

// Desktop plays counter feedback on a desktop machine. Sound is a system
// beep; there is no haptic actuator, so haptic pulses are only logged.
type Desktop struct {
	// Enabled turns all feedback off when false.
	Enabled bool

	beep   func(freq float64, duration int) error
	logger *slog.Logger
}

// NewDesktop creates a Desktop feedback sink.
func NewDesktop(enabled bool) *Desktop {
	return &Desktop{
		Enabled: enabled,
		beep:    beeep.Beep,
		logger:  slog.Default(),
	}
}

// NotifyFeedback implements counter.Feedback. Failures are logged and dropped.
func (d *Desktop) NotifyFeedback(kind counter.FeedbackKind) {
	if !d.Enabled {
		return
	}
	switch kind {
	case counter.FeedbackSound:
		if err := d.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			d.logger.Debug("beep failed", "error", err)
		}
	case counter.FeedbackHaptic:
		d.logger.Debug("haptic feedback requested, no actuator available")
	}
}
