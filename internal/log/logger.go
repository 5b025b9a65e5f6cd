package log

import (
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var zapLevels = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// Logger provides structured JSON logging. A nil *Logger discards everything.
type Logger struct {
	level    zap.AtomicLevel
	core     *zap.Logger
	redactor *redactor
	base     map[string]interface{}
	closer   io.Closer
}

// NewLogger creates a new logger with the specified level writing to stderr.
func NewLogger(level Level) *Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a logger that writes JSON lines to w.
func NewLoggerWithWriter(level Level, w io.Writer) *Logger {
	l := &Logger{
		level:    zap.NewAtomicLevelAt(toZap(level)),
		redactor: newRedactor(),
	}
	l.SetOutput(w)
	return l
}

// Nop returns a logger that discards all entries.
func Nop() *Logger {
	return NewLoggerWithWriter(LevelError+1, io.Discard)
}

// OpenFile returns a logger appending to path, falling back to stderr when
// the file cannot be opened.
func OpenFile(level Level, path string) *Logger {
	if strings.TrimSpace(path) == "" {
		return NewLogger(level)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		l := NewLogger(level)
		l.Warn("log file unavailable, using stderr", map[string]interface{}{"path": path, "error": err.Error()})
		return l
	}
	l := NewLoggerWithWriter(level, f)
	l.closer = f
	return l
}

// SetOutput sets the output writer for the logger. A file opened by
// OpenFile is closed first.
func (l *Logger) SetOutput(w io.Writer) {
	if l.closer != nil {
		_ = l.closer.Close()
		l.closer = nil
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339),
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), l.level)
	l.core = zap.New(core, zap.ErrorOutput(zapcore.AddSync(io.Discard)))
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(toZap(level))
}

func toZap(level Level) zapcore.Level {
	if zl, ok := zapLevels[level]; ok {
		return zl
	}
	return zapcore.FatalLevel
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	if l == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.base = merged
	return &child
}

// Sync flushes buffered entries. Errors are ignored.
func (l *Logger) Sync() {
	if l == nil || l.core == nil {
		return
	}
	_ = l.core.Sync()
}

// Close flushes and releases the log file opened by OpenFile, if any.
// Child loggers from With share the file; close only the root.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.Sync()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	if l == nil || l.core == nil {
		return
	}
	zl := zapLevels[level]
	if !l.level.Enabled(zl) {
		return
	}
	ce := l.core.Check(zl, l.redactor.redact(message))
	if ce == nil {
		return
	}
	ce.Write(l.zapFields(fields)...)
}

func (l *Logger) zapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 && len(l.base) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	out = append(out, zap.Namespace("fields"))
	for _, k := range keys {
		v := merged[k]
		if s, ok := v.(string); ok {
			v = l.redactor.redact(s)
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(LevelDebug, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(LevelInfo, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(LevelWarn, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(LevelError, message, fields)
}

// LogProbeStart logs the beginning of a probe.
func (l *Logger) LogProbeStart(mode string, endpoint string, timeout time.Duration) {
	l.Info("probe started", map[string]interface{}{
		"mode":       mode,
		"endpoint":   endpoint,
		"timeout_ms": timeout.Milliseconds(),
	})
}

// LogProbeResult logs a finished probe.
func (l *Logger) LogProbeResult(mode string, httpStatus int, latency time.Duration, status string, errorType string) {
	fields := map[string]interface{}{
		"mode":        mode,
		"http_status": httpStatus,
		"latency_ms":  latency.Milliseconds(),
		"status":      status,
	}
	if errorType != "" {
		fields["error_type"] = errorType
	}

	if httpStatus >= 200 && httpStatus < 300 {
		l.Info("probe finished", fields)
	} else {
		l.Warn("probe failed", fields)
	}
}

// LogStateWrite logs the result of persisting the snapshot.
func (l *Logger) LogStateWrite(path string, err error) {
	fields := map[string]interface{}{
		"path": path,
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("state write failed", fields)
		return
	}
	l.Debug("state written", fields)
}

// LogError logs a general error
func (l *Logger) LogError(component string, err error, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		merged[k] = v
	}
	merged["component"] = component
	if err != nil {
		merged["error"] = err.Error()
	}
	l.Error("error occurred", merged)
}

// ParseLevel parses a log level string
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type redactor struct {
	patterns []redaction
}

type redaction struct {
	re   *regexp.Regexp
	repl string
}

func newRedactor() *redactor {
	return &redactor{patterns: []redaction{
		{re: regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]+`), repl: "sk-ant-***"},
		{re: regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/\-]+=*`), repl: "${1}***"},
		{re: regexp.MustCompile(`(?i)(x-api-key"?\s*[:=]\s*"?)[^"\s,}]+`), repl: "${1}***"},
	}}
}

func (r *redactor) redact(s string) string {
	if r == nil || s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
