package scheduler

import (
	"time"

	"github.com/doridoridoriand/netmon/internal/log"
	"github.com/doridoridoriand/netmon/internal/probe"
	"github.com/doridoridoriand/netmon/internal/state"
	"github.com/doridoridoriand/netmon/internal/transcript"
)

const (
	// DefaultColdWindow is the session age below which a Cold probe runs.
	DefaultColdWindow = 5 * time.Second

	greenPeriodMs = 300_000
	greenSpanMs   = 3_000
	redPeriodMs   = 10_000
	redSpanMs     = 1_000
)

// ErrorScanner reports whether the transcript tail holds an API error.
// It is only consulted while a Red window is open.
type ErrorScanner func() (bool, *transcript.ErrorEvent)

// Input is what one invocation knows about the session.
type Input struct {
	TotalDurationMs uint64
	SessionID       string
}

// Decision is the scheduler's verdict for one invocation.
type Decision struct {
	Mode       probe.Mode
	WindowKind state.WindowKind
	WindowID   uint64
	LastError  *transcript.ErrorEvent
	Reason     string
}

// HasWindow reports whether the decision carries a window id to persist.
func (d Decision) HasWindow() bool {
	return d.WindowKind != ""
}

// Scheduler decides which probe, if any, an invocation should run.
type Scheduler interface {
	Decide(in Input, ms state.MonitoringState, scan ErrorScanner) Decision
}

// WindowScheduler applies Cold > Red > Green priority. It never blocks a
// repeated window itself; window ids are committed monotonically by the store.
type WindowScheduler struct {
	coldWindowMs uint64
	logger       *log.Logger
}

// NewWindowScheduler builds a scheduler. A non-positive coldWindow uses
// DefaultColdWindow.
func NewWindowScheduler(coldWindow time.Duration, logger *log.Logger) *WindowScheduler {
	if coldWindow <= 0 {
		coldWindow = DefaultColdWindow
	}
	return &WindowScheduler{coldWindowMs: uint64(coldWindow.Milliseconds()), logger: logger}
}

// ColdWindow returns the configured Cold threshold.
func (s *WindowScheduler) ColdWindow() time.Duration {
	return time.Duration(s.coldWindowMs) * time.Millisecond
}

// Decide selects at most one probe mode.
func (s *WindowScheduler) Decide(in Input, ms state.MonitoringState, scan ErrorScanner) Decision {
	d := s.decide(in, ms, scan)
	s.logger.Debug("schedule decision", map[string]interface{}{
		"total_duration_ms": in.TotalDurationMs,
		"mode":              d.Mode.String(),
		"window_id":         d.WindowID,
		"reason":            d.Reason,
	})
	return d
}

func (s *WindowScheduler) decide(in Input, ms state.MonitoringState, scan ErrorScanner) Decision {
	t := in.TotalDurationMs

	if t < s.coldWindowMs {
		if in.SessionID != "" && ms.LastColdSessionID == in.SessionID {
			return Decision{Mode: probe.ModeNone, Reason: "cold session already probed"}
		}
		return Decision{Mode: probe.ModeCold, Reason: "cold start"}
	}

	if InRedWindow(t) && scan != nil {
		if found, ev := scan(); found {
			return Decision{
				Mode:       probe.ModeRed,
				WindowKind: state.WindowRed,
				WindowID:   RedWindowID(t),
				LastError:  ev,
				Reason:     "error in transcript",
			}
		}
	}

	if InGreenWindow(t) {
		return Decision{
			Mode:       probe.ModeGreen,
			WindowKind: state.WindowGreen,
			WindowID:   GreenWindowID(t),
			Reason:     "green window",
		}
	}

	return Decision{Mode: probe.ModeNone, Reason: "outside windows"}
}

// InGreenWindow reports whether t falls in the first 3s of a 5-minute period.
func InGreenWindow(t uint64) bool { return t%greenPeriodMs < greenSpanMs }

// InRedWindow reports whether t falls in the first 1s of a 10s period.
func InRedWindow(t uint64) bool { return t%redPeriodMs < redSpanMs }

// GreenWindowID is the 5-minute window index containing t (epoch ms).
func GreenWindowID(t uint64) uint64 { return t / greenPeriodMs }

// RedWindowID is the 10-second window index containing t (epoch ms).
func RedWindowID(t uint64) uint64 { return t / redPeriodMs }
