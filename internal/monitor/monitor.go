package monitor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/doridoridoriand/netmon/internal/credentials"
	"github.com/doridoridoriand/netmon/internal/log"
	"github.com/doridoridoriand/netmon/internal/metrics"
	"github.com/doridoridoriand/netmon/internal/probe"
	"github.com/doridoridoriand/netmon/internal/scheduler"
	"github.com/doridoridoriand/netmon/internal/state"
	"github.com/doridoridoriand/netmon/internal/transcript"
)

// Prober runs one probe and persists its result.
type Prober interface {
	SetSessionID(id string)
	Probe(ctx context.Context, mode probe.Mode, creds credentials.Credentials, lastErr *transcript.ErrorEvent) (probe.Outcome, error)
}

// ErrorSource finds API errors in a transcript.
type ErrorSource interface {
	ScanTail(path string) (bool, *transcript.ErrorEvent, error)
}

// Deps are the collaborators of a Monitor. Exporter and MetricsPath are
// optional.
type Deps struct {
	Store       *state.Store
	Scheduler   scheduler.Scheduler
	Prober      Prober
	Credentials credentials.Source
	Errors      ErrorSource
	Exporter    *metrics.Exporter
	MetricsPath string
	Logger      *log.Logger
}

// Monitor runs the per-invocation cycle: load, decide, probe, commit window.
type Monitor struct {
	deps Deps
}

// Result describes what one invocation did.
type Result struct {
	RunID           string
	Decision        scheduler.Decision
	Outcome         *probe.Outcome
	WindowCommitted bool
	Snapshot        state.Snapshot
}

// New returns a Monitor over deps.
func New(deps Deps) *Monitor {
	return &Monitor{deps: deps}
}

// Run handles one event. Network problems never surface as errors; only
// persistence and metrics failures do, and Result.Snapshot is always the
// best snapshot available for rendering.
func (m *Monitor) Run(ctx context.Context, ev Event) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := m.deps.Logger.With(map[string]interface{}{"run_id": res.RunID, "session_id": ev.SessionID})

	snap := m.deps.Store.LoadOrDefault()

	creds, err := m.deps.Credentials.Get()
	if err != nil || creds == nil {
		if err != nil && !errors.Is(err, credentials.ErrNoCredentials) {
			logger.LogError("credentials", err, nil)
		}
		logger.Info("no credentials; monitoring disabled", nil)
		werr := m.deps.Store.WriteUnknown(false)
		res.Snapshot = m.deps.Store.LoadOrDefault()
		return res, multierr.Append(werr, m.export(res.Snapshot))
	}

	res.Decision = m.deps.Scheduler.Decide(scheduler.Input{
		TotalDurationMs: ev.Cost.TotalDurationMs,
		SessionID:       ev.SessionID,
	}, snap.MonitoringState, m.scanner(ev.TranscriptPath, logger))

	if res.Decision.Mode == probe.ModeNone {
		res.Snapshot = snap
		return res, m.export(snap)
	}

	var errs error
	m.deps.Prober.SetSessionID(ev.SessionID)
	out, err := m.deps.Prober.Probe(ctx, res.Decision.Mode, *creds, res.Decision.LastError)
	res.Outcome = &out
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if res.Decision.HasWindow() {
		committed, err := m.deps.Store.SetLastWindowID(res.Decision.WindowKind, res.Decision.WindowID)
		errs = multierr.Append(errs, err)
		res.WindowCommitted = committed
	}

	res.Snapshot = m.deps.Store.LoadOrDefault()
	errs = multierr.Append(errs, m.export(res.Snapshot))
	logger.Debug("invocation complete", map[string]interface{}{
		"mode":             res.Decision.Mode.String(),
		"status":           string(res.Snapshot.Status),
		"window_committed": res.WindowCommitted,
	})
	return res, errs
}

func (m *Monitor) scanner(path string, logger *log.Logger) scheduler.ErrorScanner {
	return func() (bool, *transcript.ErrorEvent) {
		if m.deps.Errors == nil {
			return false, nil
		}
		found, ev, err := m.deps.Errors.ScanTail(path)
		if err != nil {
			logger.LogError("transcript", err, map[string]interface{}{"path": path})
			return false, nil
		}
		return found, ev
	}
}

func (m *Monitor) export(snap state.Snapshot) error {
	if m.deps.Exporter == nil || m.deps.MetricsPath == "" {
		return nil
	}
	m.deps.Exporter.Observe(snap)
	return m.deps.Exporter.WriteTextfile(m.deps.MetricsPath)
}
