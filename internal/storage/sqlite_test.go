package storage

import (
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.GetString("counter"); ok || err != nil {
		t.Errorf("GetString(missing) = ok %v, err %v; want false, nil", ok, err)
	}
	if v, ok, err := s.GetInt("counter"); v != 0 || ok || err != nil {
		t.Errorf("GetInt(missing) = %d, %v, %v; want 0, false, nil", v, ok, err)
	}
}

func TestIntRoundTrip(t *testing.T) {
	s := openTestStore(t)

	for _, want := range []int{0, 1, -1, 42, -9000, 1 << 40} {
		if err := s.SetInt("counter", want); err != nil {
			t.Fatalf("SetInt(%d): %v", want, err)
		}
		got, ok, err := s.GetInt("counter")
		if err != nil || !ok {
			t.Fatalf("GetInt: ok=%v err=%v", ok, err)
		}
		if got != want {
			t.Errorf("GetInt = %d, want %d", got, want)
		}
	}
}

func TestGetIntRejectsText(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetString("counter", "twelve"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	_, ok, err := s.GetInt("counter")
	if !ok {
		t.Error("expected ok=true for a present key")
	}
	if err == nil || !strings.Contains(err.Error(), "invalid integer") {
		t.Errorf("err = %v, want invalid integer error", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetString("settings", `{"stepValue":2}`); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := s.Delete("settings"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.GetString("settings"); ok {
		t.Error("key still present after Delete")
	}
	if err := s.Delete("settings"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

// TestCrossConnectionVisibility opens the same file twice, the way the app
// and the widget process do, and checks a write on one is read by the other.
func TestCrossConnectionVisibility(t *testing.T) {
	dir := t.TempDir()

	app, err := Open(dir)
	if err != nil {
		t.Fatalf("Open app: %v", err)
	}
	defer app.Close()

	widget, err := Open(dir)
	if err != nil {
		t.Fatalf("Open widget: %v", err)
	}
	defer widget.Close()

	if err := app.SetInt("counter", 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	got, ok, err := widget.GetInt("counter")
	if err != nil || !ok || got != 7 {
		t.Fatalf("widget GetInt = %d, %v, %v; want 7, true, nil", got, ok, err)
	}

	if err := widget.SetInt("counter", 8); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if got, _, _ := app.GetInt("counter"); got != 8 {
		t.Errorf("app GetInt = %d, want 8", got)
	}
}

func TestEntries(t *testing.T) {
	s := openTestStore(t)

	s.SetString("settings", "{}")
	s.SetInt("counter", 3)

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Key != "counter" || entries[0].Value != "3" {
		t.Errorf("entries[0] = %+v, want counter=3", entries[0])
	}
	if entries[1].Key != "settings" {
		t.Errorf("entries[1].Key = %q, want settings", entries[1].Key)
	}
	if entries[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()

	if _, ok, _ := m.GetInt("counter"); ok {
		t.Error("new Memory reports a counter")
	}
	m.SetInt("counter", -4)
	if got, ok, err := m.GetInt("counter"); got != -4 || !ok || err != nil {
		t.Errorf("GetInt = %d, %v, %v; want -4, true, nil", got, ok, err)
	}
	m.SetString("counter", "x")
	if _, _, err := m.GetInt("counter"); err == nil {
		t.Error("expected error for non-integer value")
	}
	m.Delete("counter")
	if _, ok, _ := m.GetString("counter"); ok {
		t.Error("key still present after Delete")
	}
}
