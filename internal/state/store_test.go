package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "monitoring.json"), clock.NewMock(), log.Nop())
}

func sampleSnapshot() Snapshot {
	healthy := false
	level := health.LevelBad
	snap := Default()
	snap.SetStatus(StatusDegraded)
	snap.MonitoringEnabled = true
	snap.APIConfig = &APIConfig{Endpoint: "https://proxy.example.com", Source: "env:ANTHROPIC_AUTH_TOKEN"}
	snap.Network = NetworkMetrics{
		LatencyMs:        1234,
		Breakdown:        "DNS:1ms|TCP:2ms|TLS:3ms|TTFB:1228ms|Total:1234ms",
		LastHTTPStatus:   200,
		RollingTotals:    []uint32{800, 900, 1234},
		P95LatencyMs:     1234,
		ProxyHealthy:     &healthy,
		ProxyHealthLevel: &level,
	}
	snap.MonitoringState.LastGreenWindowID = 7
	snap.MonitoringState.LastRedWindowID = 42
	snap.MonitoringState.LastColdSessionID = "session-1"
	snap.MonitoringState.LastColdProbeAt = "2026-10-18T09:00:00.000+09:00"
	snap.LastJSONLErrorEvent = &ErrorEvent{Timestamp: "2026-10-18T09:00:01.000+09:00", HTTPCode: 529, Message: "Overloaded"}
	snap.Timestamp = "2026-10-18T09:00:02.000+09:00"
	return snap
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	store := newTestStore(t)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if !reflect.DeepEqual(snap, Default()) {
		t.Fatalf("expected default snapshot, got %+v", snap)
	}
}

func TestLoadCorruptFileReturnsDefaultAndError(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := store.Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if snap.Status != StatusUnknown {
		t.Fatalf("expected default status, got %s", snap.Status)
	}
	if got := store.LoadOrDefault(); got.Status != StatusUnknown {
		t.Fatalf("expected LoadOrDefault to absorb error, got %s", got.Status)
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	want := sampleSnapshot()
	if err := store.Write(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "monitoring.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the snapshot file, got %v", names)
	}
}

func TestWriteFailsWhenDirectoryIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	store := NewStore(filepath.Join(blocker, "monitoring.json"), clock.NewMock(), log.Nop())
	if err := store.Write(Default()); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestSetLastWindowIDMonotonic(t *testing.T) {
	store := newTestStore(t)
	if err := store.Write(sampleSnapshot()); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, _ := os.Stat(store.Path())
	before := info.ModTime()

	updated, err := store.SetLastWindowID(WindowGreen, 7)
	if err != nil || updated {
		t.Fatalf("expected no-op for equal id, got updated=%v err=%v", updated, err)
	}
	updated, err = store.SetLastWindowID(WindowRed, 3)
	if err != nil || updated {
		t.Fatalf("expected no-op for smaller id, got updated=%v err=%v", updated, err)
	}
	info, _ = os.Stat(store.Path())
	if !info.ModTime().Equal(before) {
		t.Fatalf("expected file untouched by no-op updates")
	}

	updated, err = store.SetLastWindowID(WindowGreen, 8)
	if err != nil || !updated {
		t.Fatalf("expected update for larger id, got updated=%v err=%v", updated, err)
	}
	snap, _ := store.Load()
	if snap.MonitoringState.LastGreenWindowID != 8 || snap.MonitoringState.LastRedWindowID != 42 {
		t.Fatalf("unexpected window ids: %+v", snap.MonitoringState)
	}
}

func TestSetLastWindowIDUnknownKind(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.SetLastWindowID(WindowKind("blue"), 1); err == nil {
		t.Fatalf("expected error for unknown window kind")
	}
}

func TestWriteUnknownKeepsRollingTotals(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC))
	store := NewStore(filepath.Join(t.TempDir(), "monitoring.json"), mock, log.Nop())
	if err := store.Write(sampleSnapshot()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.WriteUnknown(false); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	snap, _ := store.Load()
	if snap.Status != StatusUnknown || snap.MonitoringState.State != StatusUnknown {
		t.Fatalf("expected unknown status, got %s/%s", snap.Status, snap.MonitoringState.State)
	}
	if snap.MonitoringEnabled || snap.APIConfig != nil {
		t.Fatalf("expected api fields cleared, got %+v", snap)
	}
	if snap.Network.ProxyHealthy != nil || snap.Network.ProxyHealthLevel != nil {
		t.Fatalf("expected proxy fields cleared")
	}
	if !reflect.DeepEqual(snap.Network.RollingTotals, []uint32{800, 900, 1234}) || snap.Network.P95LatencyMs != 1234 {
		t.Fatalf("expected rolling stats preserved, got %+v", snap.Network)
	}
	if snap.Timestamp != FormatLocal(mock.Now()) {
		t.Fatalf("unexpected timestamp %q", snap.Timestamp)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleSnapshot()
	clone := orig.Clone()
	clone.Network.RollingTotals[0] = 1
	*clone.Network.ProxyHealthy = true
	clone.APIConfig.Endpoint = "changed"
	if orig.Network.RollingTotals[0] != 800 || *orig.Network.ProxyHealthy || orig.APIConfig.Endpoint == "changed" {
		t.Fatalf("clone shares memory with original")
	}
}
