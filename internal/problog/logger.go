// Package problog provides structured logging for the setter daemon and
// propctl. It is never imported by internal/prop or the read side of
// internal/propapi: the lock-free read path must stay free of
// non-reentrant library calls, and a logger that may append to a file
// is exactly that. Only the writer-side and router-side (non-signal-safe)
// code paths log, and each distinct error kind is logged once at the
// call site that first observes it, not on every retry.
//
// # Usage
//
//	log := problog.New(problog.Config{Level: "info", Format: "json", Output: "stderr"})
//	log.Warn("update: value too long", "name", name, "len", len(value))
//
// WithArea tags every line a router or daemon emits about one context
// with that context's label, so a propio mmap failure or a wire-protocol
// warning can be grepped back to the area file that caused it:
//
//	areaLog := log.WithArea("default")
//	areaLog.Error("router: area map failure", "path", path, "err", err)
//
// WithCorrelationID tags every line one client request produces — used
// by propctl to stamp a wire-protocol v2 Set call with the request's
// google/uuid, so a wait/serial event and the Set that triggered it
// show up under the same id in the log stream. The id never appears on
// the wire itself; the frame format is fixed independent of logging.
//
// internal/wireclient and internal/router each declare their own
// minimal Logger interface rather than importing this package, so a
// *problog.logger satisfies them structurally without an import cycle
// between these leaf packages; problog.Logger is a superset of both.
package problog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug is the most verbose level.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string into a Level.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format represents the log output format.
type Format int

const (
	// FormatText outputs logs in human-readable text format.
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
)

// ParseFormat parses a string into a Format.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatText
	}
}

// Logger is the interface for structured logging across the daemon and
// propctl.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})
	// Info logs an info message with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})
	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})
	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
	// WithCorrelationID returns a new logger that stamps every line
	// with id, for tying one client request's log lines together
	// (e.g. a propctl Set call and the wait wake it produces).
	WithCorrelationID(id string) Logger
	// WithArea returns a new logger that stamps every line with the
	// context label it concerns, for tying a router or mmap failure
	// back to the area file that produced it.
	WithArea(label string) Logger
	// WithFields returns a new logger with the given fields.
	WithFields(keysAndValues ...interface{}) Logger
}

// logger is the default implementation of Logger.
type logger struct {
	level         Level
	format        Format
	output        io.Writer
	fields        map[string]interface{}
	mu            sync.Mutex
	correlationID string
	area          string
}

// Config holds the logger configuration.
type Config struct {
	Level  string
	Format string
	Output string
}

// New creates a new Logger with the given configuration.
func New(cfg Config) Logger {
	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = f
		}
	}

	return &logger{
		level:  ParseLevel(cfg.Level),
		format: ParseFormat(cfg.Format),
		output: output,
		fields: make(map[string]interface{}),
	}
}

// NewDefault creates a new Logger with default settings.
func NewDefault() Logger {
	return &logger{
		level:  LevelInfo,
		format: FormatText,
		output: os.Stdout,
		fields: make(map[string]interface{}),
	}
}

// NewNop creates a no-op logger that discards all output.
func NewNop() Logger {
	return &nopLogger{}
}

// Debug logs a debug message.
func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs an info message.
func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message.
func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message.
func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues...)
}

// WithCorrelationID returns a new logger with the given correlation id.
func (l *logger) WithCorrelationID(id string) Logger {
	newLogger := l.clone()
	newLogger.correlationID = id
	return newLogger
}

// WithArea returns a new logger tagged with the given context label.
func (l *logger) WithArea(label string) Logger {
	newLogger := l.clone()
	newLogger.area = label
	return newLogger
}

// WithFields returns a new logger with the given fields.
func (l *logger) WithFields(keysAndValues ...interface{}) Logger {
	newLogger := l.clone()
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			newLogger.fields[key] = keysAndValues[i+1]
		}
	}
	return newLogger
}

// clone creates a copy of the logger.
func (l *logger) clone() *logger {
	newFields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	return &logger{
		level:         l.level,
		format:        l.format,
		output:        l.output,
		fields:        newFields,
		correlationID: l.correlationID,
		area:          l.area,
	}
}

// log writes a log entry.
func (l *logger) log(level Level, msg string, keysAndValues ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := make(map[string]interface{})
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["msg"] = msg

	if l.correlationID != "" {
		entry["correlation_id"] = l.correlationID
	}
	if l.area != "" {
		entry["area"] = l.area
	}

	for k, v := range l.fields {
		entry[k] = v
	}

	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			entry[key] = keysAndValues[i+1]
		}
	}

	var output string
	if l.format == FormatJSON {
		data, err := json.Marshal(entry)
		if err != nil {
			output = fmt.Sprintf(`{"ts":"%s","level":"error","msg":"failed to marshal log entry"}`, time.Now().UTC().Format(time.RFC3339))
		} else {
			output = string(data)
		}
	} else {
		output = l.formatText(entry)
	}

	fmt.Fprintln(l.output, output)
}

// formatText formats a log entry as text.
func (l *logger) formatText(entry map[string]interface{}) string {
	ts := entry["ts"]
	level := entry["level"]
	msg := entry["msg"]

	result := fmt.Sprintf("%s [%s] %s", ts, level, msg)

	if corrID, ok := entry["correlation_id"]; ok {
		result += fmt.Sprintf(" correlation_id=%v", corrID)
	}
	if area, ok := entry["area"]; ok {
		result += fmt.Sprintf(" area=%v", area)
	}

	for k, v := range entry {
		if k == "ts" || k == "level" || k == "msg" || k == "correlation_id" || k == "area" {
			continue
		}
		result += fmt.Sprintf(" %s=%v", k, v)
	}

	return result
}

// nopLogger is a no-op logger that discards all output.
type nopLogger struct{}

func (n *nopLogger) Debug(_ string, _ ...interface{})   {}
func (n *nopLogger) Info(_ string, _ ...interface{})    {}
func (n *nopLogger) Warn(_ string, _ ...interface{})    {}
func (n *nopLogger) Error(_ string, _ ...interface{})   {}
func (n *nopLogger) WithCorrelationID(_ string) Logger  { return n }
func (n *nopLogger) WithArea(_ string) Logger           { return n }
func (n *nopLogger) WithFields(_ ...interface{}) Logger { return n }
