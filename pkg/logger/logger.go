// Package logger is the request-scoped structured logger of the HTTP layer.
// Entries are one JSON object per line, or logfmt-style text for local
// development.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general operational information.
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
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects how entries are rendered.
type Format int

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = iota
	// FormatText writes "time LEVEL message key=value ..." lines.
	FormatText
)

// ParseFormat parses "json" or "text". Anything else means JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return FormatText
	}
	return FormatJSON
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field with any value.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// LogEntry represents a single log entry.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger is the main logger struct.
// Loggers derived with With share the parent's mutex so lines written to the
// same output never interleave.
type Logger struct {
	mu         *sync.Mutex
	output     io.Writer
	level      Level
	format     Format
	fields     []Field
	addCaller  bool
	callerSkip int
}

// Options configures the logger.
type Options struct {
	Output     io.Writer
	Level      Level
	Format     Format
	AddCaller  bool
	CallerSkip int
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output:     os.Stdout,
		Level:      LevelInfo,
		Format:     FormatJSON,
		AddCaller:  true,
		CallerSkip: 0,
	}
}

// New creates a new Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		mu:         &sync.Mutex{},
		output:     opts.Output,
		level:      opts.Level,
		format:     opts.Format,
		addCaller:  opts.AddCaller,
		callerSkip: opts.CallerSkip,
		fields:     make([]Field, 0),
	}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: LevelError + 1})
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a new Logger with the given fields added.
func (l *Logger) With(fields ...Field) *Logger {
	newLogger := &Logger{
		mu:         l.mu,
		output:     l.output,
		level:      l.level,
		format:     l.format,
		addCaller:  l.addCaller,
		callerSkip: l.callerSkip,
		fields:     make([]Field, len(l.fields)+len(fields)),
	}
	copy(newLogger.fields, l.fields)
	copy(newLogger.fields[len(l.fields):], fields)
	return newLogger
}

// log is the internal logging method.
func (l *Logger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}

	if l.addCaller {
		_, file, line, ok := runtime.Caller(2 + l.callerSkip)
		if ok {
			if idx := strings.LastIndex(file, "/"); idx >= 0 {
				file = file[idx+1:]
			}
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	allFields := make([]Field, 0, len(l.fields)+len(fields))
	allFields = append(allFields, l.fields...)
	allFields = append(allFields, fields...)

	if len(allFields) > 0 {
		entry.Fields = make(map[string]any, len(allFields))
		for _, f := range allFields {
			entry.Fields[f.Key] = f.Value
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == FormatText {
		l.writeText(entry)
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, "%s [%s] %s\n", entry.Timestamp, entry.Level, msg)
		return
	}

	l.output.Write(data)
	l.output.Write([]byte("\n"))
}

// writeText renders entry as a single text line. Field keys are sorted so
// output is stable.
func (l *Logger) writeText(entry LogEntry) {
	var b strings.Builder
	b.WriteString(entry.Timestamp)
	b.WriteByte(' ')
	b.WriteString(entry.Level)
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, textValue(entry.Fields[k]))
	}
	if entry.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(entry.Caller)
	}
	b.WriteByte('\n')
	io.WriteString(l.output, b.String())
}

func textValue(v any) string {
	s := fmt.Sprint(v)
	if v == nil {
		s = "<nil>"
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Context key for logger.
type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or returns a default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// RequestIDKey is a common field key for request tracing.
const RequestIDKey = "request_id"

// WithRequestID returns a logger with request ID field added.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// Domain logging helpers.
func ClassroomID(id int64) Field    { return Int64("classroom_id", id) }
func StudentID(id int64) Field      { return Int64("student_id", id) }
func Count(n int) Field             { return Int("count", n) }
func Component(name string) Field   { return String("component", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
