package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/kalambet/tally/internal/counter"
	"github.com/kalambet/tally/internal/signal"
	"github.com/kalambet/tally/internal/widget"
)

const (
	uriValue    = "counter://value"
	uriSettings = "counter://settings"
	uriTimeline = "counter://timeline"
	uriMetrics  = "counter://metrics"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Counter  *counter.Store
	Settings *counter.SettingsStore
	Widget   *widget.Provider
	Metrics  prometheus.Gatherer // optional; if nil, counter://metrics is not registered
}

// NewMCPServer creates an MCP server exposing the counter operations as tools
// and the counter state as resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"tally",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithInstructions("tally: a shared counter. Use the tools to change it and the resources to read it."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_value",
			mcp.WithDescription("Return the current counter value."),
		),
		mcpGetValue(deps),
	)

	s.AddTool(
		mcp.NewTool("increment",
			mcp.WithDescription("Add the configured step to the counter, clamping at the maximum."),
		),
		mcpIntent(deps, widget.IntentIncrement),
	)

	s.AddTool(
		mcp.NewTool("decrement",
			mcp.WithDescription("Subtract the configured step from the counter, clamping at the minimum or at zero."),
		),
		mcpIntent(deps, widget.IntentDecrement),
	)

	s.AddTool(
		mcp.NewTool("reset",
			mcp.WithDescription("Set the counter to the configured default value."),
		),
		mcpReset(deps),
	)

	s.AddTool(
		mcp.NewTool("set_value",
			mcp.WithDescription("Overwrite the counter with an exact value, ignoring step and bounds."),
			mcp.WithNumber("value", mcp.Description("Integer value to store"), mcp.Required()),
		),
		mcpSetValue(deps),
	)

	s.AddTool(
		mcp.NewTool("refresh",
			mcp.WithDescription("Re-read the counter from the shared store."),
		),
		mcpRefresh(deps),
	)

	s.AddTool(
		mcp.NewTool("get_settings",
			mcp.WithDescription("Return the counter settings as JSON."),
		),
		mcpGetSettings(deps),
	)

	s.AddTool(
		mcp.NewTool("set_settings",
			mcp.WithDescription("Replace the counter settings. Omitted fields take their defaults. The record is stored even if inconsistent; warnings are returned."),
			mcp.WithString("settings", mcp.Description(`JSON object, e.g. {"stepValue":5,"maxValue":12}`), mcp.Required()),
		),
		mcpSetSettings(deps),
	)

	s.AddTool(
		mcp.NewTool("timeline",
			mcp.WithDescription("Return the widget timeline for the current value."),
		),
		mcpTimeline(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(uriValue, "Counter Value",
			mcp.WithResourceDescription("Current counter value"),
			mcp.WithMIMEType("text/plain"),
		),
		mcpResourceValue(deps),
	)

	s.AddResource(
		mcp.NewResource(uriSettings, "Counter Settings",
			mcp.WithResourceDescription("Step, bounds and feedback settings as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSettings(deps),
	)

	s.AddResource(
		mcp.NewResource(uriTimeline, "Widget Timeline",
			mcp.WithResourceDescription("Widget timeline entries and next update time"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTimeline(deps),
	)

	if deps.Metrics != nil {
		s.AddResource(
			mcp.NewResource(uriMetrics, "Counter Metrics",
				mcp.WithResourceDescription("Prometheus metrics for this process in text exposition format"),
				mcp.WithMIMEType("text/plain"),
			),
			mcpResourceMetrics(deps),
		)
	}

	return s
}

// ForwardRefresh sends a resources/updated notification to every client for
// each refresh event, until ctx is cancelled or events is closed.
func ForwardRefresh(ctx context.Context, s *server.MCPServer, events <-chan signal.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			for _, uri := range []string{uriValue, uriTimeline} {
				s.SendNotificationToAllClients("notifications/resources/updated", map[string]any{"uri": uri})
			}
		}
	}
}

func mcpGetValue(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpText(strconv.Itoa(deps.Counter.Value())), nil
	}
}

func mcpIntent(deps MCPDeps, intent widget.Intent) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entry, err := deps.Widget.Perform(intent)
		if err != nil {
			return mcpError(fmt.Sprintf("%s failed: %v", intent, err)), nil
		}
		return mcpText(strconv.Itoa(entry.Counter)), nil
	}
}

func mcpReset(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, err := deps.Counter.Reset()
		if err != nil {
			return mcpError(fmt.Sprintf("reset failed: %v", err)), nil
		}
		return mcpText(strconv.Itoa(v)), nil
	}
}

func mcpSetValue(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireFloat("value")
		if err != nil {
			return mcpError("value is required"), nil
		}
		v := int(raw)
		if float64(v) != raw {
			return mcpError(fmt.Sprintf("value must be an integer, got %v", raw)), nil
		}
		if err := deps.Counter.Set(v); err != nil {
			return mcpError(fmt.Sprintf("set failed: %v", err)), nil
		}
		return mcpText(strconv.Itoa(v)), nil
	}
}

func mcpRefresh(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpText(strconv.Itoa(deps.Counter.Refresh())), nil
	}
}

func mcpGetSettings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Settings.Settings())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal settings: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetSettings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("settings")
		if err != nil {
			return mcpError("settings is required"), nil
		}

		settings := counter.DefaultSettings()
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return mcpError(fmt.Sprintf("invalid settings JSON: %v", err)), nil
		}

		if err := deps.Settings.SetSettings(settings); err != nil {
			return mcpError(fmt.Sprintf("failed to save settings: %v", err)), nil
		}

		msg := "Settings saved"
		if verr := settings.Validate(); verr != nil {
			msg += fmt.Sprintf(" with warnings: %v", verr)
		}
		return mcpText(msg), nil
	}
}

func mcpTimeline(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Widget.Timeline())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal timeline: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceValue(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     strconv.Itoa(deps.Counter.Value()),
			},
		}, nil
	}
}

func mcpResourceSettings(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Settings.Settings())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceTimeline(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Widget.Timeline())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal timeline: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceMetrics(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		families, err := deps.Metrics.Gather()
		if err != nil {
			return nil, fmt.Errorf("failed to gather metrics: %w", err)
		}
		var buf bytes.Buffer
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				return nil, fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
			}
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     buf.String(),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
