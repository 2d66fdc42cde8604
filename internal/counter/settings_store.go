package counter

import (
	"fmt"
	"log/slog"
)

// SettingsStore reads and writes the Settings record in the shared store.
type SettingsStore struct {
	backend   Backend
	refresher Refresher
	logger    *slog.Logger
}

// NewSettingsStore creates a SettingsStore over backend. refresher may be nil.
func NewSettingsStore(backend Backend, refresher Refresher) *SettingsStore {
	if refresher == nil {
		refresher = nopRefresher{}
	}
	return &SettingsStore{
		backend:   backend,
		refresher: refresher,
		logger:    slog.Default(),
	}
}

// Settings returns the persisted record, or DefaultSettings when none is
// stored or the stored record cannot be read.
func (s *SettingsStore) Settings() Settings {
	raw, ok, err := s.backend.GetString(SettingsKey)
	if err != nil {
		s.logger.Warn("reading settings failed, using defaults", "error", err)
		return DefaultSettings()
	}
	if !ok || raw == "" {
		return DefaultSettings()
	}
	settings, err := decodeSettings(raw)
	if err != nil {
		s.logger.Warn("malformed settings record, using defaults", "error", err)
		return DefaultSettings()
	}
	return settings
}

// SetSettings overwrites the persisted record. The record is not validated.
func (s *SettingsStore) SetSettings(settings Settings) error {
	raw, err := encodeSettings(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.backend.SetString(SettingsKey, raw); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	s.refresher.NotifyRefreshNeeded()
	return nil
}

// ResetSettings removes the persisted record so Settings returns defaults.
func (s *SettingsStore) ResetSettings() error {
	if err := s.backend.Delete(SettingsKey); err != nil {
		return fmt.Errorf("deleting settings: %w", err)
	}
	s.refresher.NotifyRefreshNeeded()
	return nil
}
