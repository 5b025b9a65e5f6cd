package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/doridoridoriand/netmon/internal/probe"
)

// OptionalDuration records a duration flag and whether it was set.
type OptionalDuration struct {
	value time.Duration
	set   bool
}

func (o *OptionalDuration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalDuration) String() string {
	if !o.set {
		return ""
	}
	return o.value.String()
}

func (o *OptionalDuration) Value() (time.Duration, bool) {
	return o.value, o.set
}

// OptionalString records a string flag and whether it was set.
type OptionalString struct {
	value string
	set   bool
}

func (o *OptionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *OptionalString) String() string {
	if !o.set {
		return ""
	}
	return o.value
}

func (o *OptionalString) Value() (string, bool) {
	return o.value, o.set
}

// OptionalBool records a bool flag and whether it was set.
type OptionalBool struct {
	value bool
	set   bool
}

func (o *OptionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalBool) String() string {
	if !o.set {
		return ""
	}
	if o.value {
		return "true"
	}
	return "false"
}

func (o *OptionalBool) IsBoolFlag() bool {
	return true
}

func (o *OptionalBool) Value() (bool, bool) {
	return o.value, o.set
}

// OptionalTimingMode records a -timing flag restricted to known modes.
type OptionalTimingMode struct {
	value string
	set   bool
}

func (o *OptionalTimingMode) Set(s string) error {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case probe.TimingMeasured, probe.TimingHeuristic:
	default:
		return fmt.Errorf("invalid timing mode %q (use %s or %s)", s, probe.TimingMeasured, probe.TimingHeuristic)
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalTimingMode) String() string {
	if !o.set {
		return ""
	}
	return o.value
}

func (o *OptionalTimingMode) Value() (string, bool) {
	return o.value, o.set
}

// OptionalMillis records a duration given either as Go duration text or as
// a bare millisecond count.
type OptionalMillis struct {
	OptionalDuration
}

func (o *OptionalMillis) Set(s string) error {
	if ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		o.value = time.Duration(ms) * time.Millisecond
		o.set = true
		return nil
	}
	return o.OptionalDuration.Set(s)
}
