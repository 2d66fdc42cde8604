package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/tally/internal/api"
	"github.com/kalambet/tally/internal/widget"
)

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Run the widget host (MCP over stdio) until interrupted",
	Long: `Run the widget host.

The host serves the counter over MCP on stdin/stdout and polls the shared
store so that changes made by other tally processes are pushed to clients
as resource updates. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWidget()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a timeline entry each time the counter changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func runWidget() error {
	fmt.Fprintf(os.Stderr, "tally version %s\n", version)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := widget.NewProvider(a.counter, a.cfg.Widget.RefreshEvery())
	reloader := widget.NewReloader(a.backend, a.hub, a.cfg.Widget.PollEvery())

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Counter:  a.counter,
		Settings: a.settings,
		Widget:   provider,
		Metrics:  a.registry,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	updates, cancelUpdates := a.hub.Subscribe()
	defer cancelUpdates()
	reloads, cancelReloads := a.hub.Subscribe()
	defer cancelReloads()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reloader.Run(ctx)
		return nil
	})

	g.Go(func() error {
		api.ForwardRefresh(ctx, mcpSrv, updates)
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-reloads:
				if !ok {
					return nil
				}
				tl := provider.Timeline()
				slog.Info("reloading widget timelines",
					"kind", a.cfg.Widget.Kind,
					"event", ev.ID,
					"counter", tl.Entries[0].Counter,
					"next_update", tl.NextUpdate.Format(time.RFC3339),
				)
			}
		}
	})

	g.Go(func() error {
		slog.Info("MCP server started (stdio transport)", "kind", a.cfg.Widget.Kind)
		err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		// stdin closed: the client went away, stop the other goroutines.
		stop()
		return nil
	})

	err = g.Wait()
	fmt.Fprintln(os.Stderr, "shutting down...")
	return err
}

func runWatch() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := widget.NewProvider(a.counter, a.cfg.Widget.RefreshEvery())
	reloader := widget.NewReloader(a.backend, a.hub, a.cfg.Widget.PollEvery())
	vm := widget.NewViewModel(a.counter)

	printStep("Watching %s (Ctrl-C to stop)", a.cfg.Storage.Backend)
	printEntry(provider.Snapshot())

	events, cancel := a.hub.Subscribe()
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reloader.Run(ctx)
		return nil
	})
	g.Go(func() error {
		vm.Watch(ctx, events, func(v int) {
			printEntry(widget.Entry{Date: time.Now(), Counter: v})
		})
		return nil
	})
	return g.Wait()
}

func printEntry(e widget.Entry) {
	fmt.Printf("%s  %s\n", e.Date.Local().Format(time.TimeOnly), colorize(styleBold, fmt.Sprint(e.Counter)))
}
