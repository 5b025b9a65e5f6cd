package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/doridoridoriand/netmon/internal/credentials"
	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/log"
	"github.com/doridoridoriand/netmon/internal/state"
	"github.com/doridoridoriand/netmon/internal/stats"
	"github.com/doridoridoriand/netmon/internal/transcript"
)

// Assessor reports proxy health for a base URL; nil means not applicable.
type Assessor interface {
	Assess(ctx context.Context, baseURL string) (*health.Level, error)
}

// Options configure the probe request.
type Options struct {
	TimeoutOverride  time.Duration
	EndpointPath     string
	Model            string
	AnthropicVersion string
}

// DefaultOptions returns the request shape used against the messages API.
func DefaultOptions() Options {
	return Options{
		EndpointPath:     "/v1/messages",
		Model:            "claude-3-5-haiku-20241022",
		AnthropicVersion: "2023-06-01",
	}
}

// Outcome summarises one probe.
type Outcome struct {
	Mode             Mode
	Status           state.Status
	LatencyMs        uint32
	HTTPStatus       int
	ErrorType        string
	P80              uint32
	P95              uint32
	Breakdown        string
	Timeout          time.Duration
	ProxyHealthLevel *health.Level
	Snapshot         state.Snapshot
}

// Executor runs probes and is the only writer of monitoring results.
type Executor struct {
	transport Transport
	assessor  Assessor
	store     *state.Store
	clock     clock.Clock
	logger    *log.Logger
	opts      Options
	sessionID string
}

// NewExecutor wires an Executor.
func NewExecutor(transport Transport, assessor Assessor, store *state.Store, clk clock.Clock, logger *log.Logger, opts Options) *Executor {
	if clk == nil {
		clk = clock.New()
	}
	if opts.EndpointPath == "" {
		opts.EndpointPath = DefaultOptions().EndpointPath
	}
	return &Executor{
		transport: transport,
		assessor:  assessor,
		store:     store,
		clock:     clk,
		logger:    logger,
		opts:      opts,
	}
}

// SetSessionID records the session used for Cold-probe deduplication.
func (e *Executor) SetSessionID(id string) {
	e.sessionID = id
}

// Probe executes one probe for mode, folds the result into the snapshot and
// persists it. Network failures are part of the outcome; only a failed state
// write is returned as an error.
func (e *Executor) Probe(ctx context.Context, mode Mode, creds credentials.Credentials, lastErr *transcript.ErrorEvent) (Outcome, error) {
	if mode == ModeNone {
		return Outcome{}, fmt.Errorf("probe: no mode selected")
	}

	snap := e.store.LoadOrDefault()
	timeout := SelectTimeout(mode, snap.Network.RollingTotals, snap.Network.P95LatencyMs, e.opts.TimeoutOverride)

	req, err := e.buildRequest(creds, timeout)
	e.logger.LogProbeStart(mode.String(), req.URL, timeout)
	var res Result
	if err != nil {
		res = Result{Err: err}
	} else {
		res = e.transport.Execute(ctx, req)
	}
	if res.Err != nil {
		res.StatusCode = 0
		e.logger.Debug("probe transport error", map[string]interface{}{"mode": mode.String(), "error": res.Err.Error()})
	}

	now := e.clock.Now()
	out := Outcome{
		Mode:       mode,
		HTTPStatus: res.StatusCode,
		LatencyMs:  durationMs(res.Latency),
		ErrorType:  ClassifyStatus(res.StatusCode),
		Breakdown:  res.Timing.Breakdown(),
		Timeout:    timeout,
	}

	snap.MonitoringEnabled = true
	snap.APIConfig = &state.APIConfig{Endpoint: creds.BaseURL, Source: creds.Source}
	snap.Network.LatencyMs = out.LatencyMs
	snap.Network.Breakdown = out.Breakdown
	snap.Network.LastHTTPStatus = uint16(res.StatusCode)
	snap.Network.ErrorType = out.ErrorType

	switch mode {
	case ModeRed:
		e.applyRed(&snap, lastErr, now)
	default:
		e.applyGreen(&snap, &out)
		if mode == ModeCold && e.sessionID != "" {
			snap.MonitoringState.LastColdSessionID = e.sessionID
			snap.MonitoringState.LastColdProbeAt = state.FormatLocal(now)
		}
	}

	e.applyProxyHealth(ctx, &snap, creds.BaseURL)

	snap.Timestamp = state.FormatLocal(now)
	out.Status = snap.Status
	out.ErrorType = snap.Network.ErrorType
	out.P95 = snap.Network.P95LatencyMs
	out.ProxyHealthLevel = snap.Network.ProxyHealthLevel
	out.Snapshot = snap

	e.logger.LogProbeResult(mode.String(), res.StatusCode, res.Latency, string(out.Status), out.ErrorType)

	if err := e.store.Write(snap); err != nil {
		return out, fmt.Errorf("persist probe result: %w", err)
	}
	return out, nil
}

// applyRed marks the API as failing. Rolling statistics stay untouched.
func (e *Executor) applyRed(snap *state.Snapshot, lastErr *transcript.ErrorEvent, now time.Time) {
	snap.SetStatus(state.StatusError)
	if lastErr == nil {
		return
	}
	snap.LastJSONLErrorEvent = &state.ErrorEvent{
		Timestamp: toLocalTimestamp(lastErr.Timestamp, now),
		HTTPCode:  lastErr.Code,
		Message:   lastErr.Message,
	}
	if snap.Network.ErrorType == "" {
		snap.Network.ErrorType = ClassifyStatus(int(lastErr.Code))
	}
}

func (e *Executor) applyGreen(snap *state.Snapshot, out *Outcome) {
	switch snap.Network.LastHTTPStatus {
	case http.StatusOK:
		snap.Network.RollingTotals = stats.Push(snap.Network.RollingTotals, out.LatencyMs, stats.RollingCapacity)
		p95 := stats.P95(snap.Network.RollingTotals)
		p80 := stats.P80(snap.Network.RollingTotals)
		snap.Network.P95LatencyMs = p95
		out.P80 = p80
		switch {
		case out.LatencyMs <= p80:
			snap.SetStatus(state.StatusHealthy)
		case out.LatencyMs <= p95:
			snap.SetStatus(state.StatusDegraded)
		default:
			snap.SetStatus(state.StatusError)
		}
	case http.StatusTooManyRequests:
		snap.SetStatus(state.StatusDegraded)
	default:
		snap.SetStatus(state.StatusError)
	}
}

func (e *Executor) applyProxyHealth(ctx context.Context, snap *state.Snapshot, baseURL string) {
	if health.IsOfficialEndpoint(baseURL) || e.assessor == nil {
		snap.ClearProxy()
		return
	}
	level, err := e.assessor.Assess(ctx, baseURL)
	if err != nil {
		e.logger.LogError("health", err, map[string]interface{}{"base_url": baseURL})
		unhealthy := false
		snap.Network.ProxyHealthy = &unhealthy
		snap.Network.ProxyHealthLevel = health.LevelBad.Ptr()
		return
	}
	snap.Network.ProxyHealthLevel = level
	snap.Network.ProxyHealthy = health.LegacyHealthy(level)
}

func (e *Executor) buildRequest(creds credentials.Credentials, timeout time.Duration) (Request, error) {
	base := strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	path := e.opts.EndpointPath
	if strings.HasSuffix(base, "/v1") && strings.HasPrefix(path, "/v1/") {
		path = strings.TrimPrefix(path, "/v1")
	}
	req := Request{
		Method:  http.MethodPost,
		URL:     base + path,
		Timeout: timeout,
		Header:  http.Header{},
	}
	if base == "" {
		return req, credentials.ErrNoCredentials
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":      e.opts.Model,
		"max_tokens": 1,
		"messages":   []map[string]string{{"role": "user", "content": "ping"}},
	})
	if err != nil {
		return req, fmt.Errorf("encode probe body: %w", err)
	}
	req.Body = body
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", e.opts.AnthropicVersion)
	req.Header.Set("x-api-key", creds.AuthToken)
	req.Header.Set("Authorization", "Bearer "+creds.AuthToken)
	return req, nil
}

// toLocalTimestamp converts a UTC transcript timestamp to local time,
// falling back to now when it cannot be parsed.
func toLocalTimestamp(raw string, now time.Time) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return state.FormatLocal(t)
		}
	}
	return state.FormatLocal(now)
}

func durationMs(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
