package config

import (
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	Storage  StorageConfig
	Widget   WidgetConfig
	Feedback FeedbackConfig
	Log      LogConfig
}

type StorageConfig struct {
	DataDir string
	// Backend selects the shared counter store: "sqlite" or "defaults" (macOS only).
	Backend string
	// Suite is the defaults domain shared by the app and the widget when
	// Backend is "defaults".
	Suite string
}

type WidgetConfig struct {
	Kind            string
	RefreshInterval string
	PollInterval    string
}

type FeedbackConfig struct {
	Desktop bool
}

type LogConfig struct {
	Level string
}

const (
	BackendSQLite   = "sqlite"
	BackendDefaults = "defaults"
)

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Backend: BackendSQLite,
			Suite:   "group.com.tally.shared",
		},
		Widget: WidgetConfig{
			Kind:            "tally",
			RefreshInterval: "5m",
			PollInterval:    "1s",
		},
		Feedback: FeedbackConfig{
			Desktop: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.tally.app).
// Elsewhere it is a TOML file at $XDG_CONFIG_HOME/tally/config.toml.
//
// Environment variables (TALLY_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	switch cfg.Storage.Backend {
	case BackendSQLite, BackendDefaults:
	default:
		return Config{}, fmt.Errorf("invalid storage.backend %q: want %q or %q",
			cfg.Storage.Backend, BackendSQLite, BackendDefaults)
	}

	return cfg, nil
}

// RefreshEvery returns the widget timeline interval, falling back to 5m when
// the configured value does not parse.
func (w WidgetConfig) RefreshEvery() time.Duration {
	return parseDuration("widget.refresh_interval", w.RefreshInterval, 5*time.Minute)
}

// PollEvery returns the cross-process poll interval, falling back to 1s.
func (w WidgetConfig) PollEvery() time.Duration {
	return parseDuration("widget.poll_interval", w.PollInterval, time.Second)
}

func parseDuration(key, raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

// SlogLevel maps Log.Level to a slog level. Unknown names map to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
