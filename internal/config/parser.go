package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/probe"
	"github.com/doridoridoriand/netmon/internal/scheduler"
	"github.com/doridoridoriand/netmon/internal/state"
)

// Environment variables read by Load, besides the probe timeout override.
const (
	EnvColdWindowMs = "NETMON_COLD_WINDOW_MS"
	EnvLogLevel     = "NETMON_LOG_LEVEL"
	EnvStatePath    = "NETMON_STATE_PATH"
)

// DefaultOptions returns baseline settings used before any overrides.
func DefaultOptions() Options {
	h := health.DefaultOptions()
	p := probe.DefaultOptions()
	return Options{
		ColdWindow: scheduler.DefaultColdWindow,
		TimingMode: probe.TimingMeasured,
		LogLevel:   "warn",
		Health: HealthOptions{
			UseRootURLs:        h.UseRootURLs,
			TryFallback:        h.TryFallback,
			FollowRedirectOnce: h.FollowRedirectOnce,
			Timeout:            h.Timeout,
		},
		EndpointPath: p.EndpointPath,
		Model:        p.Model,
	}
}

// DefaultConfigPath returns ~/.netmon/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: %v", state.ErrHomeNotFound, err)
	}
	return filepath.Join(home, ".netmon", "config.yaml"), nil
}

// Load layers defaults, the YAML file at path, the environment and CLI
// overrides. An empty path means the default location, where a missing file
// is fine; an explicit path must exist.
func Load(path string, lookup func(string) (string, bool), overrides CLIOverrides) (Options, error) {
	opts := DefaultOptions()
	if lookup == nil {
		lookup = os.LookupEnv
	}

	explicit := path != ""
	if !explicit {
		if p, err := DefaultConfigPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(path, &opts); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return opts, err
			}
		}
	}

	applyEnv(&opts, lookup)
	applyCLIOverrides(&opts, overrides)

	if err := validate(&opts); err != nil {
		return opts, err
	}
	if opts.StatePath == "" {
		p, err := state.DefaultPath()
		if err != nil {
			return opts, err
		}
		opts.StatePath = p
	}
	return opts, nil
}

func loadFile(path string, opts *Options) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse yaml %s: %w", path, err)
	}
	applyFile(opts, fc)
	return nil
}

func applyFile(opts *Options, fc fileConfig) {
	setString(&opts.StatePath, fc.StatePath)
	setMillis(&opts.ColdWindow, fc.ColdWindow)
	setMillis(&opts.TimeoutOverride, fc.TimeoutOverride)
	setString(&opts.TimingMode, fc.TimingMode)
	setString(&opts.LogLevel, fc.LogLevel)
	setString(&opts.LogPath, fc.LogPath)
	setBool(&opts.Health.UseRootURLs, fc.Health.UseRootURLs)
	setBool(&opts.Health.TryFallback, fc.Health.TryFallback)
	setBool(&opts.Health.FollowRedirectOnce, fc.Health.FollowRedirectOnce)
	setMillis(&opts.Health.Timeout, fc.Health.Timeout)
	setString(&opts.MetricsTextfile, fc.Metrics.Textfile)
	setString(&opts.EndpointPath, fc.EndpointPath)
	setString(&opts.Model, fc.Model)
}

func applyEnv(opts *Options, lookup func(string) (string, bool)) {
	if d, ok := probe.TimeoutOverrideFromEnv(lookup); ok {
		opts.TimeoutOverride = d
	}
	if raw, ok := lookup(EnvColdWindowMs); ok && strings.TrimSpace(raw) != "" {
		ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || ms <= 0 {
			opts.Warnings = append(opts.Warnings, fmt.Sprintf("ignoring %s=%q: want a positive millisecond count", EnvColdWindowMs, raw))
		} else {
			opts.ColdWindow = time.Duration(ms) * time.Millisecond
		}
	}
	if raw, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(raw) != "" {
		opts.LogLevel = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(EnvStatePath); ok && strings.TrimSpace(raw) != "" {
		opts.StatePath = strings.TrimSpace(raw)
	}
}

func applyCLIOverrides(opts *Options, overrides CLIOverrides) {
	setString(&opts.StatePath, overrides.StatePath)
	if overrides.ColdWindow != nil {
		opts.ColdWindow = *overrides.ColdWindow
	}
	if overrides.TimeoutOverride != nil {
		opts.TimeoutOverride = *overrides.TimeoutOverride
	}
	setString(&opts.TimingMode, overrides.TimingMode)
	setString(&opts.LogLevel, overrides.LogLevel)
	setString(&opts.MetricsTextfile, overrides.MetricsTextfile)
}

func validate(opts *Options) error {
	switch opts.TimingMode {
	case probe.TimingMeasured, probe.TimingHeuristic:
	default:
		return fmt.Errorf("config: invalid timing_mode %q (use %s or %s)", opts.TimingMode, probe.TimingMeasured, probe.TimingHeuristic)
	}
	if opts.ColdWindow <= 0 {
		return fmt.Errorf("config: cold_window must be > 0")
	}
	if opts.TimeoutOverride < 0 {
		return fmt.Errorf("config: timeout_override cannot be negative")
	}
	if opts.Health.Timeout <= 0 {
		return fmt.Errorf("config: health.timeout must be > 0")
	}
	if !strings.HasPrefix(opts.EndpointPath, "/") {
		return fmt.Errorf("config: endpoint_path must start with /")
	}
	return nil
}

// HealthAssessorOptions converts to the health package's options.
func (o Options) HealthAssessorOptions() health.Options {
	return health.Options{
		UseRootURLs:        o.Health.UseRootURLs,
		TryFallback:        o.Health.TryFallback,
		FollowRedirectOnce: o.Health.FollowRedirectOnce,
		Timeout:            o.Health.Timeout,
	}
}

// ProbeOptions converts to the probe package's options.
func (o Options) ProbeOptions() probe.Options {
	p := probe.DefaultOptions()
	p.TimeoutOverride = o.TimeoutOverride
	p.EndpointPath = o.EndpointPath
	p.Model = o.Model
	return p
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setMillis(dst *time.Duration, v *int64) {
	if v != nil {
		*dst = time.Duration(*v) * time.Millisecond
	}
}
