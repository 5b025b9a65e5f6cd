package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/state"
)

const (
	dotActive   = "●"
	dotInactive = "○"
	ansiReset   = "\x1b[0m"
)

var (
	colorHealthy  = tcell.NewRGBColor(0x4c, 0xaf, 0x50)
	colorDegraded = tcell.NewRGBColor(0xff, 0xc1, 0x07)
	colorError    = tcell.NewRGBColor(0xf4, 0x43, 0x36)
	colorMuted    = tcell.NewRGBColor(0x9e, 0x9e, 0x9e)
)

// Renderer formats a snapshot as a one-line status string.
type Renderer struct {
	color bool
}

// NewRenderer returns a Renderer; color enables 24-bit ANSI escapes.
func NewRenderer(color bool) *Renderer {
	return &Renderer{color: color}
}

type styledText struct {
	text  string
	color tcell.Color
}

// Render returns the status line for snap without a trailing newline.
func (r *Renderer) Render(snap state.Snapshot) string {
	var b strings.Builder
	for _, part := range r.segments(snap) {
		b.WriteString(r.paint(part))
	}
	return b.String()
}

func (r *Renderer) segments(snap state.Snapshot) []styledText {
	if !snap.MonitoringEnabled {
		return []styledText{
			{text: dotInactive, color: colorMuted},
			{text: " netmon: no credentials", color: tcell.ColorDefault},
		}
	}

	sc := statusColor(snap.Status)
	parts := []styledText{
		{text: dotActive, color: sc},
		{text: " " + string(snap.Status), color: sc},
	}
	if snap.Network.LastHTTPStatus != 0 || snap.Network.LatencyMs > 0 {
		parts = append(parts, styledText{text: " " + formatLatency(snap.Network.LatencyMs), color: tcell.ColorDefault})
	}
	if snap.Network.P95LatencyMs > 0 {
		parts = append(parts, styledText{text: " P95:" + formatLatency(snap.Network.P95LatencyMs), color: colorMuted})
	}
	if et := snap.Network.ErrorType; et != "" {
		parts = append(parts, styledText{text: " " + et, color: colorError})
	}
	if ev := snap.LastJSONLErrorEvent; ev != nil && snap.Status == state.StatusError {
		parts = append(parts, styledText{text: fmt.Sprintf(" last:%d", ev.HTTPCode), color: colorError})
	}
	if lvl := snap.Network.ProxyHealthLevel; lvl != nil {
		parts = append(parts,
			styledText{text: " | ", color: colorMuted},
			styledText{text: "proxy:" + string(*lvl), color: proxyColor(*lvl)},
		)
	}
	return parts
}

func (r *Renderer) paint(part styledText) string {
	if !r.color || part.color == tcell.ColorDefault {
		return part.text
	}
	red, green, blue := part.color.RGB()
	if red < 0 {
		return part.text
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s%s", red, green, blue, part.text, ansiReset)
}

func formatLatency(ms uint32) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", ms)
}

func statusColor(status state.Status) tcell.Color {
	switch status {
	case state.StatusHealthy:
		return colorHealthy
	case state.StatusDegraded:
		return colorDegraded
	case state.StatusError:
		return colorError
	default:
		return colorMuted
	}
}

func proxyColor(level health.Level) tcell.Color {
	switch level {
	case health.LevelHealthy:
		return colorHealthy
	case health.LevelDegraded:
		return colorDegraded
	case health.LevelBad:
		return colorError
	default:
		return colorMuted
	}
}
