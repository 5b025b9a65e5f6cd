package probe

import (
	"strconv"
	"strings"
	"time"

	"github.com/doridoridoriand/netmon/internal/stats"
)

const (
	redTimeout       = 2000 * time.Millisecond
	bootstrapTimeout = 3500 * time.Millisecond
	adaptiveMargin   = 500 * time.Millisecond
	adaptiveFloor    = 2500 * time.Millisecond
	adaptiveCeiling  = 4000 * time.Millisecond
	overrideCeiling  = 6000 * time.Millisecond

	minAdaptiveSamples = 4
)

// TimeoutEnvVars are checked in order by TimeoutOverrideFromEnv.
var TimeoutEnvVars = []string{"NETMON_TIMEOUT_MS", "NETMON_PROBE_TIMEOUT_MS"}

// TimeoutOverrideFromEnv reads the timeout override in milliseconds. The
// first spelling holding a positive integer wins; other values are skipped.
func TimeoutOverrideFromEnv(lookup func(string) (string, bool)) (time.Duration, bool) {
	for _, name := range TimeoutEnvVars {
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		ms, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || ms <= 0 {
			continue
		}
		return time.Duration(ms) * time.Millisecond, true
	}
	return 0, false
}

// SelectTimeout picks the request timeout for mode. A positive override is
// clamped to 6s and wins over everything else.
func SelectTimeout(mode Mode, rolling []uint32, p95 uint32, override time.Duration) time.Duration {
	if override > 0 {
		return min(override, overrideCeiling)
	}
	if mode == ModeRed {
		return redTimeout
	}
	if len(rolling) < minAdaptiveSamples {
		return bootstrapTimeout
	}
	if p95 == 0 {
		p95 = stats.P95(rolling)
	}
	adaptive := time.Duration(p95)*time.Millisecond + adaptiveMargin
	return max(adaptiveFloor, min(adaptive, adaptiveCeiling))
}
