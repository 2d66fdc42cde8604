package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kalambet/tally/internal/config"
	"github.com/kalambet/tally/internal/counter"
	"github.com/kalambet/tally/internal/signal"
	"github.com/kalambet/tally/internal/storage"
)

var version = "dev"

var (
	noColor bool
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:           "tally",
	Short:         "A counter shared between the app and its widget",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding tally.db (overrides storage.data_dir)")

	rootCmd.AddCommand(getCmd, incCmd, decCmd, resetCmd, setCmd)
	rootCmd.AddCommand(settingsCmd, configCmd, storeCmd)
	rootCmd.AddCommand(widgetCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// app is the counter core wired to the configured shared store.
type app struct {
	cfg      config.Config
	backend  counter.Backend
	sqlite   *storage.SQLite // nil unless storage.backend is sqlite
	hub      *signal.Hub
	registry *prometheus.Registry
	settings *counter.SettingsStore
	counter  *counter.Store
}

// openApp loads config, configures logging and opens the shared store.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	a := &app{
		cfg:      cfg,
		hub:      signal.NewHub(),
		registry: prometheus.NewRegistry(),
	}

	switch cfg.Storage.Backend {
	case config.BackendDefaults:
		b, err := config.OpenDefaults(cfg.Storage.Suite)
		if err != nil {
			return nil, fmt.Errorf("opening defaults suite %s: %w", cfg.Storage.Suite, err)
		}
		a.backend = b
	default:
		db, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		a.sqlite = db
		a.backend = db
	}

	a.settings = counter.NewSettingsStore(a.backend, a.hub)
	a.counter = counter.NewStore(counter.StoreDeps{
		Backend:   a.backend,
		Settings:  a.settings,
		Refresher: a.hub,
		Feedback:  signal.NewDesktop(cfg.Feedback.Desktop),
		Metrics:   counter.NewMetrics(a.registry),
		Logger:    slog.Default(),
	})
	return a, nil
}

func (a *app) Close() {
	a.hub.Close()
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}
}
