package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/clock"

	"github.com/doridoridoriand/netmon/internal/cli"
	"github.com/doridoridoriand/netmon/internal/config"
	"github.com/doridoridoriand/netmon/internal/credentials"
	"github.com/doridoridoriand/netmon/internal/health"
	"github.com/doridoridoriand/netmon/internal/log"
	"github.com/doridoridoriand/netmon/internal/metrics"
	"github.com/doridoridoriand/netmon/internal/monitor"
	"github.com/doridoridoriand/netmon/internal/probe"
	"github.com/doridoridoriand/netmon/internal/scheduler"
	"github.com/doridoridoriand/netmon/internal/state"
	"github.com/doridoridoriand/netmon/internal/transcript"
	"github.com/doridoridoriand/netmon/internal/ui"
)

const version = "0.1.0"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.LookupEnv))
}

type flags struct {
	statePath       cli.OptionalString
	configPath      string
	coldWindow      cli.OptionalMillis
	timeout         cli.OptionalMillis
	timing          cli.OptionalTimingMode
	logLevel        cli.OptionalString
	metricsTextfile cli.OptionalString
	noColor         bool
	version         bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("netmon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&f.statePath, "state", "snapshot path (default ~/.netmon/monitoring.json)")
	fs.StringVar(&f.configPath, "config", "", "config file (default ~/.netmon/config.yaml)")
	fs.Var(&f.coldWindow, "cold-window", "session age below which a cold probe runs (ms or duration)")
	fs.Var(&f.timeout, "timeout", "probe timeout override, capped at 6s (ms or duration)")
	fs.Var(&f.timing, "timing", "timing mode: measured|heuristic")
	fs.Var(&f.logLevel, "log-level", "log level: debug|info|warn|error")
	fs.Var(&f.metricsTextfile, "metrics-textfile", "write Prometheus textfile metrics to this path")
	fs.BoolVar(&f.noColor, "no-color", false, "disable ANSI colours")
	fs.BoolVar(&f.version, "version", false, "show version")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: netmon [options] < event.json")
		fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func buildOverrides(f *flags) config.CLIOverrides {
	overrides := config.CLIOverrides{}
	if v, ok := f.statePath.Value(); ok && v != "" {
		value := v
		overrides.StatePath = &value
	}
	if v, ok := f.coldWindow.Value(); ok {
		value := v
		overrides.ColdWindow = &value
	}
	if v, ok := f.timeout.Value(); ok {
		value := v
		overrides.TimeoutOverride = &value
	}
	if v, ok := f.timing.Value(); ok {
		value := v
		overrides.TimingMode = &value
	}
	if v, ok := f.logLevel.Value(); ok && v != "" {
		value := v
		overrides.LogLevel = &value
	}
	if v, ok := f.metricsTextfile.Value(); ok {
		value := v
		overrides.MetricsTextfile = &value
	}
	return overrides
}

// run executes one status-line refresh. Probe and network failures never
// change the exit code; only bad flags or configuration do.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, lookup func(string) (string, bool)) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if f.version {
		fmt.Fprintf(stdout, "netmon version %s\n", version)
		return 0
	}

	opts, err := config.Load(f.configPath, lookup, buildOverrides(f))
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		fmt.Fprintln(stdout, ui.NewRenderer(!f.noColor).Render(fallbackSnapshot(f, lookup)))
		return 1
	}

	logger := log.OpenFile(log.ParseLevel(opts.LogLevel), opts.LogPath)
	if opts.LogPath == "" {
		logger.SetOutput(stderr)
	}
	defer logger.Close()
	for _, w := range opts.Warnings {
		logger.Warn(w, nil)
	}
	logger.Debug("config loaded", map[string]interface{}{
		"state_path":  opts.StatePath,
		"cold_window": opts.ColdWindow.String(),
		"timing_mode": opts.TimingMode,
	})

	clk := clock.New()
	userAgent := "netmon/" + version
	store := state.NewStore(opts.StatePath, clk, logger)
	assessor := health.NewAssessor(health.NewHTTPClient(userAgent), opts.HealthAssessorOptions(), logger)
	exec := probe.NewExecutor(probe.NewTransport(opts.TimingMode, userAgent, clk), assessor, store, clk, logger, opts.ProbeOptions())

	var exporter *metrics.Exporter
	if opts.MetricsTextfile != "" {
		exporter = metrics.NewExporter()
	}
	mon := monitor.New(monitor.Deps{
		Store:       store,
		Scheduler:   scheduler.NewWindowScheduler(opts.ColdWindow, logger),
		Prober:      exec,
		Credentials: credentials.NewEnvSource(lookup),
		Errors:      transcript.NewScanner(),
		Exporter:    exporter,
		MetricsPath: opts.MetricsTextfile,
		Logger:      logger,
	})

	renderer := ui.NewRenderer(!f.noColor)

	ev, err := monitor.ParseEvent(stdin)
	if err != nil {
		logger.LogError("event", err, nil)
		fmt.Fprintln(stdout, renderer.Render(store.LoadOrDefault()))
		return 0
	}

	res, err := mon.Run(ctx, ev)
	if err != nil {
		logger.LogError("monitor", err, map[string]interface{}{"run_id": res.RunID})
	}
	fmt.Fprintln(stdout, renderer.Render(res.Snapshot))
	return 0
}

// fallbackSnapshot loads whatever the state file holds when configuration
// could not be resolved, so the status line is never blank.
func fallbackSnapshot(f *flags, lookup func(string) (string, bool)) state.Snapshot {
	path, ok := f.statePath.Value()
	if !ok || path == "" {
		if raw, found := lookup(config.EnvStatePath); found && raw != "" {
			path = raw
		}
	}
	if path == "" {
		p, err := state.DefaultPath()
		if err != nil {
			return state.Default()
		}
		path = p
	}
	return state.NewStore(path, nil, log.Nop()).LoadOrDefault()
}
