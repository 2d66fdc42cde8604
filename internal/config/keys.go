package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "storage.data_dir", typ: kString, env: "TALLY_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.backend", typ: kString, env: "TALLY_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.suite", typ: kString, env: "TALLY_STORAGE_SUITE",
		apply:   func(cfg *Config, v any) { cfg.Storage.Suite = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Suite },
	},
	{
		key: "widget.kind", typ: kString, env: "TALLY_WIDGET_KIND",
		apply:   func(cfg *Config, v any) { cfg.Widget.Kind = v.(string) },
		extract: func(cfg Config) any { return cfg.Widget.Kind },
	},
	{
		key: "widget.refresh_interval", typ: kString, env: "TALLY_WIDGET_REFRESH_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Widget.RefreshInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Widget.RefreshInterval },
	},
	{
		key: "widget.poll_interval", typ: kString, env: "TALLY_WIDGET_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Widget.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Widget.PollInterval },
	},
	{
		key: "feedback.desktop", typ: kBool, env: "TALLY_FEEDBACK_DESKTOP",
		apply:   func(cfg *Config, v any) { cfg.Feedback.Desktop = v.(bool) },
		extract: func(cfg Config) any { return cfg.Feedback.Desktop },
	},
	{
		key: "log.level", typ: kString, env: "TALLY_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
