package scheduler

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/doridoridoriand/netmon/internal/log"
	"github.com/doridoridoriand/netmon/internal/probe"
	"github.com/doridoridoriand/netmon/internal/state"
)

func TestPropertyDecisionPriority(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 500
	props := gopter.NewProperties(params)
	s := NewWindowScheduler(0, log.Nop())

	props.Property("mode follows cold > red > green", prop.ForAll(
		func(total uint64, errFound bool) bool {
			got := s.Decide(Input{TotalDurationMs: total, SessionID: "s"}, state.MonitoringState{}, scanner(errFound, nil))
			var want probe.Mode
			switch {
			case total < 5000:
				want = probe.ModeCold
			case total%10000 < 1000 && errFound:
				want = probe.ModeRed
			case total%300000 < 3000:
				want = probe.ModeGreen
			default:
				want = probe.ModeNone
			}
			return got.Mode == want
		},
		gen.UInt64Range(0, 24*60*60*1000),
		gen.Bool(),
	))

	props.Property("window ids derive from total duration", prop.ForAll(
		func(total uint64) bool {
			got := s.Decide(Input{TotalDurationMs: total}, state.MonitoringState{}, scanner(true, nil))
			switch got.Mode {
			case probe.ModeRed:
				return got.WindowKind == state.WindowRed && got.WindowID == total/10000
			case probe.ModeGreen:
				return got.WindowKind == state.WindowGreen && got.WindowID == total/300000
			default:
				return !got.HasWindow()
			}
		},
		gen.UInt64Range(5000, 24*60*60*1000),
	))

	props.TestingRun(t)
}
