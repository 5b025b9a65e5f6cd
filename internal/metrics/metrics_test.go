package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/state"
)

func sampleSnapshot() state.Snapshot {
	snap := state.Default()
	snap.SetStatus(state.StatusDegraded)
	snap.Network.LatencyMs = 812
	snap.Network.P95LatencyMs = 1500
	snap.Network.LastHTTPStatus = 200
	snap.Network.RollingTotals = []uint32{700, 812, 1500}
	healthy := false
	snap.Network.ProxyHealthy = &healthy
	snap.Network.ProxyHealthLevel = health.LevelDegraded.Ptr()
	return snap
}

func TestObserve(t *testing.T) {
	e := NewExporter()
	e.Observe(sampleSnapshot())

	if v := testutil.ToFloat64(e.status.WithLabelValues("degraded")); v != 1 {
		t.Fatalf("expected degraded=1, got %v", v)
	}
	if v := testutil.ToFloat64(e.status.WithLabelValues("healthy")); v != 0 {
		t.Fatalf("expected healthy=0, got %v", v)
	}
	if v := testutil.ToFloat64(e.latency); v != 812 {
		t.Fatalf("expected latency 812, got %v", v)
	}
	if v := testutil.ToFloat64(e.p95); v != 1500 {
		t.Fatalf("expected p95 1500, got %v", v)
	}
	if v := testutil.ToFloat64(e.samples); v != 3 {
		t.Fatalf("expected 3 samples, got %v", v)
	}
	if v := testutil.ToFloat64(e.proxyHealthy); v != 0 {
		t.Fatalf("expected proxy_healthy 0, got %v", v)
	}
	if v := testutil.ToFloat64(e.proxyLevel.WithLabelValues("degraded")); v != 1 {
		t.Fatalf("expected proxy level degraded=1, got %v", v)
	}
}

func TestObserveProxyNotApplicable(t *testing.T) {
	e := NewExporter()
	e.Observe(sampleSnapshot())

	snap := sampleSnapshot()
	snap.ClearProxy()
	e.Observe(snap)

	if v := testutil.ToFloat64(e.proxyHealthy); v != -1 {
		t.Fatalf("expected proxy_healthy -1, got %v", v)
	}
	if n := testutil.CollectAndCount(e.proxyLevel); n != 0 {
		t.Fatalf("expected proxy level series to be cleared, got %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	e := NewExporter()
	e.Observe(sampleSnapshot())

	path := filepath.Join(t.TempDir(), "collector", "netmon.prom")
	if err := e.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`netmon_status{status="degraded"} 1`,
		"netmon_latency_ms 812",
		"netmon_p95_latency_ms 1500",
		"netmon_last_http_status 200",
		"netmon_rolling_samples 3",
		"# TYPE netmon_proxy_healthy gauge",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in textfile:\n%s", want, got)
		}
	}
}

func TestWriteTextfileBadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := NewExporter().WriteTextfile(filepath.Join(blocker, "netmon.prom")); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}
