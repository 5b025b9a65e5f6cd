package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/state"
)

const namespace = "netmon"

var statuses = []state.Status{state.StatusHealthy, state.StatusDegraded, state.StatusError, state.StatusUnknown}

// Exporter mirrors a snapshot into Prometheus gauges for the node_exporter
// textfile collector.
type Exporter struct {
	registry       *prometheus.Registry
	status         *prometheus.GaugeVec
	latency        prometheus.Gauge
	p95            prometheus.Gauge
	lastHTTPStatus prometheus.Gauge
	samples        prometheus.Gauge
	proxyHealthy   prometheus.Gauge
	proxyLevel     *prometheus.GaugeVec
}

// NewExporter registers the gauges on a private registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "1 for the current monitoring status, 0 otherwise.",
		}, []string{"status"}),
		latency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latency_ms",
			Help:      "Latency of the last probe in milliseconds.",
		}),
		p95: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "p95_latency_ms",
			Help:      "P95 of the rolling latency window in milliseconds.",
		}),
		lastHTTPStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_http_status",
			Help:      "HTTP status of the last probe; 0 means a connection failure.",
		}),
		samples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rolling_samples",
			Help:      "Number of latencies in the rolling window.",
		}),
		proxyHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proxy_healthy",
			Help:      "1 healthy, 0 not healthy, -1 not applicable.",
		}),
		proxyLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proxy_health_level",
			Help:      "1 for the current proxy health level.",
		}, []string{"level"}),
	}
	e.registry.MustRegister(e.status, e.latency, e.p95, e.lastHTTPStatus, e.samples, e.proxyHealthy, e.proxyLevel)
	return e
}

// Gatherer exposes the registry.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// Observe replaces all gauge values with those of snap.
func (e *Exporter) Observe(snap state.Snapshot) {
	for _, s := range statuses {
		v := 0.0
		if snap.Status == s {
			v = 1
		}
		e.status.WithLabelValues(string(s)).Set(v)
	}
	e.latency.Set(float64(snap.Network.LatencyMs))
	e.p95.Set(float64(snap.Network.P95LatencyMs))
	e.lastHTTPStatus.Set(float64(snap.Network.LastHTTPStatus))
	e.samples.Set(float64(len(snap.Network.RollingTotals)))

	switch {
	case snap.Network.ProxyHealthy == nil:
		e.proxyHealthy.Set(-1)
	case *snap.Network.ProxyHealthy:
		e.proxyHealthy.Set(1)
	default:
		e.proxyHealthy.Set(0)
	}

	e.proxyLevel.Reset()
	if lvl := snap.Network.ProxyHealthLevel; lvl != nil {
		for _, l := range []health.Level{health.LevelHealthy, health.LevelDegraded, health.LevelBad, health.LevelUnknown} {
			v := 0.0
			if *lvl == l {
				v = 1
			}
			e.proxyLevel.WithLabelValues(string(l)).Set(v)
		}
	}
}

// WriteTextfile atomically writes the gauges in text exposition format.
func (e *Exporter) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
