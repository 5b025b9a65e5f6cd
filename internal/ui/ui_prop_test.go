package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/doridoridoriand/netmon/internal/state"
)

func TestPropertyPlainRenderHasNoEscapes(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("plain line starts with the dot and status and has no ANSI", prop.ForAll(
		func(status string, latency, p95 uint32) bool {
			snap := snapshot(state.Status(status))
			snap.Network.LatencyMs = latency
			snap.Network.P95LatencyMs = p95
			got := NewRenderer(false).Render(snap)
			return strings.HasPrefix(got, "● "+status) && !strings.Contains(got, "\x1b[")
		},
		gen.OneConstOf("healthy", "degraded", "error", "unknown"),
		gen.UInt32Range(1, 60000),
		gen.UInt32Range(0, 60000),
	))

	props.Property("coloured line reduces to the plain line", prop.ForAll(
		func(status string, latency uint32) bool {
			snap := snapshot(state.Status(status))
			snap.Network.LatencyMs = latency
			plain := NewRenderer(false).Render(snap)
			colored := NewRenderer(true).Render(snap)
			return stripANSI(colored) == plain && strings.Contains(plain, fmt.Sprintf("%dms", latency))
		},
		gen.OneConstOf("healthy", "degraded", "error", "unknown"),
		gen.UInt32Range(1, 60000),
	))

	props.TestingRun(t)
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
