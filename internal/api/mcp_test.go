package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kalambet/tally/internal/counter"
	"github.com/kalambet/tally/internal/signal"
	"github.com/kalambet/tally/internal/storage"
	"github.com/kalambet/tally/internal/widget"
)

// --- helpers ---

type testDeps struct {
	MCPDeps
	backend *storage.Memory
	hub     *signal.Hub
}

func newTestMCPDeps(t *testing.T, settings counter.Settings) testDeps {
	t.Helper()
	backend := storage.NewMemory()
	hub := signal.NewHub()
	t.Cleanup(hub.Close)

	settingsStore := counter.NewSettingsStore(backend, hub)
	if err := settingsStore.SetSettings(settings); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}

	reg := prometheus.NewRegistry()
	store := counter.NewStore(counter.StoreDeps{
		Backend:   backend,
		Settings:  settingsStore,
		Refresher: hub,
		Metrics:   counter.NewMetrics(reg),
	})

	return testDeps{
		MCPDeps: MCPDeps{
			Counter:  store,
			Settings: settingsStore,
			Widget:   widget.NewProvider(store, widget.DefaultRefreshInterval),
			Metrics:  reg,
		},
		backend: backend,
		hub:     hub,
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), makeCallToolRequest(name, args))
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return result
}

func resourceText(t *testing.T, contents []mcp.ResourceContents) string {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("expected 1 resource content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	return tc.Text
}

// --- tools ---

func TestMCPTool_IncrementAndDecrement(t *testing.T) {
	deps := newTestMCPDeps(t, counter.Settings{StepValue: 5, MaxValue: counter.Bound(12)})

	inc := mcpIntent(deps.MCPDeps, widget.IntentIncrement)
	for _, want := range []string{"5", "10", "12", "12"} {
		if got := toolText(t, callTool(t, inc, "increment", nil)); got != want {
			t.Errorf("increment = %q, want %q", got, want)
		}
	}

	dec := mcpIntent(deps.MCPDeps, widget.IntentDecrement)
	for _, want := range []string{"7", "2", "0"} {
		if got := toolText(t, callTool(t, dec, "decrement", nil)); got != want {
			t.Errorf("decrement = %q, want %q", got, want)
		}
	}
}

func TestMCPTool_GetValue(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())
	if err := deps.backend.SetInt(counter.CounterKey, 42); err != nil {
		t.Fatal(err)
	}

	if got := toolText(t, callTool(t, mcpGetValue(deps.MCPDeps), "get_value", nil)); got != "42" {
		t.Errorf("get_value = %q, want 42", got)
	}
}

func TestMCPTool_Reset(t *testing.T) {
	deps := newTestMCPDeps(t, counter.Settings{StepValue: 1, DefaultValue: 7})
	if err := deps.backend.SetInt(counter.CounterKey, 99); err != nil {
		t.Fatal(err)
	}

	if got := toolText(t, callTool(t, mcpReset(deps.MCPDeps), "reset", nil)); got != "7" {
		t.Errorf("reset = %q, want 7", got)
	}
}

func TestMCPTool_SetValue(t *testing.T) {
	deps := newTestMCPDeps(t, counter.Settings{StepValue: 1, MaxValue: counter.Bound(10)})
	handler := mcpSetValue(deps.MCPDeps)

	// set ignores bounds
	result := callTool(t, handler, "set_value", map[string]interface{}{"value": float64(25)})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := deps.Counter.Value(); got != 25 {
		t.Errorf("Value() = %d, want 25", got)
	}

	result = callTool(t, handler, "set_value", map[string]interface{}{"value": 2.5})
	if !result.IsError {
		t.Error("expected error for a fractional value")
	}

	result = callTool(t, handler, "set_value", map[string]interface{}{})
	if !result.IsError {
		t.Error("expected error when value is missing")
	}
}

func TestMCPTool_Refresh(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())

	// another process writes behind the store's back
	if err := deps.backend.SetInt(counter.CounterKey, 3); err != nil {
		t.Fatal(err)
	}
	if got := toolText(t, callTool(t, mcpRefresh(deps.MCPDeps), "refresh", nil)); got != "3" {
		t.Errorf("refresh = %q, want 3", got)
	}
}

func TestMCPTool_SettingsRoundTrip(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())

	result := callTool(t, mcpSetSettings(deps.MCPDeps), "set_settings", map[string]interface{}{
		"settings": `{"stepValue":3,"minValue":-6,"allowNegative":true}`,
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var got counter.Settings
	if err := json.Unmarshal([]byte(toolText(t, callTool(t, mcpGetSettings(deps.MCPDeps), "get_settings", nil))), &got); err != nil {
		t.Fatalf("decoding settings: %v", err)
	}
	if got.StepValue != 3 || got.MinValue == nil || *got.MinValue != -6 || !got.AllowNegative {
		t.Errorf("settings = %+v", got)
	}
	if got.MaxValue != nil {
		t.Errorf("MaxValue = %v, want nil", *got.MaxValue)
	}
	if !got.HapticEnabled {
		t.Error("omitted hapticEnabled should keep its default")
	}
}

func TestMCPTool_SetSettingsWarnsButStores(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())

	result := callTool(t, mcpSetSettings(deps.MCPDeps), "set_settings", map[string]interface{}{
		"settings": `{"stepValue":1,"minValue":10,"maxValue":5}`,
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if text := toolText(t, result); !strings.Contains(text, "warnings") {
		t.Errorf("expected a warning, got %q", text)
	}
	if s := deps.Settings.Settings(); s.MinValue == nil || *s.MinValue != 10 {
		t.Errorf("inconsistent settings were not stored: %+v", s)
	}
}

func TestMCPTool_SetSettingsInvalidJSON(t *testing.T) {
	deps := newTestMCPDeps(t, counter.Settings{StepValue: 4})

	result := callTool(t, mcpSetSettings(deps.MCPDeps), "set_settings", map[string]interface{}{
		"settings": `{"stepValue":`,
	})
	if !result.IsError {
		t.Fatal("expected error for malformed JSON")
	}
	if s := deps.Settings.Settings(); s.StepValue != 4 {
		t.Errorf("StepValue = %d, want unchanged 4", s.StepValue)
	}
}

func TestMCPTool_Timeline(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())
	if err := deps.backend.SetInt(counter.CounterKey, 8); err != nil {
		t.Fatal(err)
	}

	var tl widget.Timeline
	if err := json.Unmarshal([]byte(toolText(t, callTool(t, mcpTimeline(deps.MCPDeps), "timeline", nil))), &tl); err != nil {
		t.Fatalf("decoding timeline: %v", err)
	}
	if len(tl.Entries) != 1 || tl.Entries[0].Counter != 8 {
		t.Errorf("timeline entries = %+v", tl.Entries)
	}
	if !tl.NextUpdate.After(tl.Entries[0].Date) {
		t.Errorf("NextUpdate %v not after entry date %v", tl.NextUpdate, tl.Entries[0].Date)
	}
}

// --- resources ---

func TestMCPResource_Value(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())
	if err := deps.backend.SetInt(counter.CounterKey, -4); err != nil {
		t.Fatal(err)
	}

	contents, err := mcpResourceValue(deps.MCPDeps)(context.Background(), makeReadResourceRequest(uriValue))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resourceText(t, contents); got != "-4" {
		t.Errorf("counter://value = %q, want -4", got)
	}
}

func TestMCPResource_Settings(t *testing.T) {
	deps := newTestMCPDeps(t, counter.Settings{StepValue: 2, MaxValue: counter.Bound(9)})

	contents, err := mcpResourceSettings(deps.MCPDeps)(context.Background(), makeReadResourceRequest(uriSettings))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resourceText(t, contents); !strings.Contains(got, `"maxValue":9`) {
		t.Errorf("counter://settings = %s", got)
	}
}

func TestMCPResource_Metrics(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())
	if _, err := deps.Counter.Increment(); err != nil {
		t.Fatal(err)
	}

	contents, err := mcpResourceMetrics(deps.MCPDeps)(context.Background(), makeReadResourceRequest(uriMetrics))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resourceText(t, contents)
	for _, want := range []string{
		`tally_counter_operations_total{op="increment"} 1`,
		"tally_counter_value 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q:\n%s", want, text)
		}
	}
}

// --- server ---

func TestNewMCPServer_RegistersTools(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())
	s := NewMCPServer(deps.MCPDeps)

	tools := s.ListTools()
	for _, name := range []string{
		"get_value", "increment", "decrement", "reset", "set_value",
		"refresh", "get_settings", "set_settings", "timeline",
	} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestForwardRefreshStopsOnClose(t *testing.T) {
	deps := newTestMCPDeps(t, counter.DefaultSettings())
	s := NewMCPServer(deps.MCPDeps)

	events, cancel := deps.hub.Subscribe()
	done := make(chan struct{})
	go func() {
		ForwardRefresh(context.Background(), s, events)
		close(done)
	}()

	// with no clients connected the notifications go nowhere
	for i := 0; i < 3; i++ {
		if _, err := deps.Counter.Increment(); err != nil {
			t.Fatal(err)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ForwardRefresh did not return after the subscription closed")
	}
	if got := strconv.Itoa(deps.Counter.Value()); got != "3" {
		t.Errorf("Value() = %s, want 3", got)
	}
}
