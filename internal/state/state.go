package state

import (
	"time"

	"github.com/doridoridoriand/netmon/internal/health"
)

// Status is the overall monitoring verdict.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
	StatusUnknown  Status = "unknown"
)

// WindowKind selects which window id SetLastWindowID updates.
type WindowKind string

const (
	WindowGreen WindowKind = "green"
	WindowRed   WindowKind = "red"
)

// LocalTimeLayout is ISO-8601 with milliseconds and a numeric offset.
const LocalTimeLayout = "2006-01-02T15:04:05.000-07:00"

// FormatLocal renders t in the local zone using LocalTimeLayout.
func FormatLocal(t time.Time) string {
	return t.Local().Format(LocalTimeLayout)
}

// Snapshot is the single persisted monitoring document.
type Snapshot struct {
	Status              Status          `json:"status"`
	MonitoringEnabled   bool            `json:"monitoring_enabled"`
	APIConfig           *APIConfig      `json:"api_config,omitempty"`
	Network             NetworkMetrics  `json:"network"`
	MonitoringState     MonitoringState `json:"monitoring_state"`
	LastJSONLErrorEvent *ErrorEvent     `json:"last_jsonl_error_event,omitempty"`
	Timestamp           string          `json:"timestamp"`
}

// APIConfig records which endpoint was probed and where the credential came from.
type APIConfig struct {
	Endpoint string `json:"endpoint"`
	Source   string `json:"source"`
}

// NetworkMetrics holds the latest probe observation and rolling statistics.
type NetworkMetrics struct {
	LatencyMs        uint32        `json:"latency_ms"`
	Breakdown        string        `json:"breakdown"`
	LastHTTPStatus   uint16        `json:"last_http_status"`
	ErrorType        string        `json:"error_type,omitempty"`
	RollingTotals    []uint32      `json:"rolling_totals"`
	P95LatencyMs     uint32        `json:"p95_latency_ms"`
	ProxyHealthy     *bool         `json:"proxy_healthy,omitempty"`
	ProxyHealthLevel *health.Level `json:"proxy_health_level,omitempty"`
}

// MonitoringState carries scheduler bookkeeping across invocations.
type MonitoringState struct {
	LastGreenWindowID uint64 `json:"last_green_window_id"`
	LastRedWindowID   uint64 `json:"last_red_window_id"`
	LastColdSessionID string `json:"last_cold_session_id,omitempty"`
	LastColdProbeAt   string `json:"last_cold_probe_at,omitempty"`
	State             Status `json:"state"`
}

// ErrorEvent is the most recent API error seen in the transcript.
type ErrorEvent struct {
	Timestamp string `json:"timestamp"`
	HTTPCode  uint16 `json:"http_code"`
	Message   string `json:"message"`
}

// Default returns the zero-value snapshot used when nothing is on disk.
func Default() Snapshot {
	return Snapshot{
		Status: StatusUnknown,
		Network: NetworkMetrics{
			RollingTotals: []uint32{},
		},
		MonitoringState: MonitoringState{
			State: StatusUnknown,
		},
	}
}

// SetStatus updates the verdict and its mirror in MonitoringState.
func (s *Snapshot) SetStatus(status Status) {
	s.Status = status
	s.MonitoringState.State = status
}

// ClearProxy marks proxy health as not applicable.
func (s *Snapshot) ClearProxy() {
	s.Network.ProxyHealthy = nil
	s.Network.ProxyHealthLevel = nil
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	clone := s
	if s.APIConfig != nil {
		api := *s.APIConfig
		clone.APIConfig = &api
	}
	if s.LastJSONLErrorEvent != nil {
		ev := *s.LastJSONLErrorEvent
		clone.LastJSONLErrorEvent = &ev
	}
	clone.Network.RollingTotals = append([]uint32{}, s.Network.RollingTotals...)
	if s.Network.ProxyHealthy != nil {
		v := *s.Network.ProxyHealthy
		clone.Network.ProxyHealthy = &v
	}
	if s.Network.ProxyHealthLevel != nil {
		v := *s.Network.ProxyHealthLevel
		clone.Network.ProxyHealthLevel = &v
	}
	return clone
}
