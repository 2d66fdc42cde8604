package counter

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Settings is the policy record that governs how the counter may change.
// It is stored as JSON under SettingsKey.
type Settings struct {
	StepValue     int  `json:"stepValue"`
	MaxValue      *int `json:"maxValue,omitempty"`
	MinValue      *int `json:"minValue,omitempty"`
	AllowNegative bool `json:"allowNegative"`
	DefaultValue  int  `json:"defaultValue"`
	HapticEnabled bool `json:"hapticEnabled"`
	SoundEnabled  bool `json:"soundEnabled"`
}

// DefaultSettings returns the record used when nothing has been persisted.
func DefaultSettings() Settings {
	return Settings{
		StepValue:     1,
		AllowNegative: true,
		DefaultValue:  0,
		HapticEnabled: true,
		SoundEnabled:  true,
	}
}

// Bound returns a pointer to v, for filling MinValue and MaxValue.
func Bound(v int) *int {
	return &v
}

// Validate reports inconsistencies in s. SettingsStore never calls it: the
// store persists whatever it is given, and callers decide what to do with
// the result.
func (s Settings) Validate() error {
	var errs []error
	if s.StepValue <= 0 {
		errs = append(errs, fmt.Errorf("stepValue must be positive, got %d", s.StepValue))
	}
	if s.MinValue != nil && s.MaxValue != nil && *s.MinValue > *s.MaxValue {
		errs = append(errs, fmt.Errorf("minValue %d is greater than maxValue %d", *s.MinValue, *s.MaxValue))
	}
	if s.MinValue != nil && s.DefaultValue < *s.MinValue {
		errs = append(errs, fmt.Errorf("defaultValue %d is below minValue %d", s.DefaultValue, *s.MinValue))
	}
	if s.MaxValue != nil && s.DefaultValue > *s.MaxValue {
		errs = append(errs, fmt.Errorf("defaultValue %d is above maxValue %d", s.DefaultValue, *s.MaxValue))
	}
	if !s.AllowNegative && s.DefaultValue < 0 {
		errs = append(errs, fmt.Errorf("defaultValue %d is negative but allowNegative is false", s.DefaultValue))
	}
	return errors.Join(errs...)
}

// Clone returns a copy of s that shares no pointers with it.
func (s Settings) Clone() Settings {
	cp := s
	if s.MaxValue != nil {
		cp.MaxValue = Bound(*s.MaxValue)
	}
	if s.MinValue != nil {
		cp.MinValue = Bound(*s.MinValue)
	}
	return cp
}

// decodeSettings unmarshals raw on top of the defaults so that fields absent
// from an older record keep their default values.
func decodeSettings(raw string) (Settings, error) {
	s := DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

func encodeSettings(s Settings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
