package probe

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/doridoridoriand/netmon/internal/log"
	"github.com/doridoridoriand/netmon/internal/state"
	"github.com/doridoridoriand/netmon/internal/stats"
	"github.com/doridoridoriand/netmon/internal/transcript"
)

func TestPropertyRedLeavesRollingStatsUntouched(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	props := gopter.NewProperties(params)

	props.Property("red probes keep rolling_totals and p95", prop.ForAll(
		func(seed []uint32, status int, latency uint32) bool {
			dir := t.TempDir()
			store := state.NewStore(filepath.Join(dir, "monitoring.json"), clock.NewMock(), log.Nop())
			snap := state.Default()
			for _, v := range seed {
				snap.Network.RollingTotals = stats.Push(snap.Network.RollingTotals, v, stats.RollingCapacity)
			}
			snap.Network.P95LatencyMs = stats.P95(snap.Network.RollingTotals)
			if err := store.Write(snap); err != nil {
				return false
			}

			transport := &scriptedTransport{results: []Result{{StatusCode: status, Latency: time.Duration(latency) * time.Millisecond}}}
			exec := NewExecutor(transport, &stubAssessor{}, store, clock.NewMock(), log.Nop(), DefaultOptions())
			out, err := exec.Probe(context.Background(), ModeRed, proxyCreds, &transcript.ErrorEvent{Code: 529, Message: "Overloaded"})
			if err != nil || out.Status != state.StatusError {
				return false
			}
			after, err := store.Load()
			if err != nil {
				return false
			}
			return reflect.DeepEqual(after.Network.RollingTotals, snap.Network.RollingTotals) &&
				after.Network.P95LatencyMs == snap.Network.P95LatencyMs &&
				out.P95 == snap.Network.P95LatencyMs
		},
		gen.SliceOfN(12, gen.UInt32Range(1, 6000)),
		gen.OneConstOf(0, 200, 429, 500, 529),
		gen.UInt32Range(1, 6000),
	))

	props.Property("green/cold keep rolling_totals within capacity", prop.ForAll(
		func(latencies []uint32) bool {
			store := state.NewStore(filepath.Join(t.TempDir(), "monitoring.json"), clock.NewMock(), log.Nop())
			transport := &scriptedTransport{}
			for _, ms := range latencies {
				transport.results = append(transport.results, Result{StatusCode: 200, Latency: time.Duration(ms) * time.Millisecond})
			}
			exec := NewExecutor(transport, &stubAssessor{}, store, clock.NewMock(), log.Nop(), DefaultOptions())
			for range latencies {
				if _, err := exec.Probe(context.Background(), ModeGreen, proxyCreds, nil); err != nil {
					return false
				}
			}
			snap, err := store.Load()
			if err != nil {
				return false
			}
			want := len(latencies)
			if want > stats.RollingCapacity {
				want = stats.RollingCapacity
			}
			return len(snap.Network.RollingTotals) == want
		},
		gen.SliceOf(gen.UInt32Range(1, 6000)),
	))

	props.TestingRun(t)
}
