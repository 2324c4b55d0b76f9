package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error, fatal, panic
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string // time format for log messages
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}, nil
}

// NewNop returns a logger that discards everything. Collectors still receive entries.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithCollector returns a logger sharing l's output that also aggregates
// warnings and errors into c.
func (l *Logger) WithCollector(c *LogCollector) *Logger {
	return &Logger{zl: l.zl, collector: c}
}

// Collector returns the attached collector, if any.
func (l *Logger) Collector() *LogCollector { return l.collector }

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), "", msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), "", msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), "warn", msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), "error", msg, fields) }

// emit writes the event and, for collected levels, records it with the
// caller of the public logging method.
func (l *Logger) emit(event *zerolog.Event, collectAs, msg string, fields []Field) {
	for _, f := range fields {
		f.addTo(event)
	}
	event.Msg(msg)

	if collectAs == "" || l.collector == nil {
		return
	}
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.LastIndex(file, "LunarPull"); i >= 0 {
			file = file[i+len("LunarPull"):]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}
	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		values[f.Key] = f.plain()
	}
	l.collector.AddLog(collectAs, msg, values, caller)
}

// Field is a key/value pair attached to a log event.
type Field struct {
	Key   string
	Value interface{}
}

func (f Field) addTo(e *zerolog.Event) {
	switch v := f.Value.(type) {
	case string:
		e.Str(f.Key, v)
	case int:
		e.Int(f.Key, v)
	case int64:
		e.Int64(f.Key, v)
	case float64:
		e.Float64(f.Key, v)
	case bool:
		e.Bool(f.Key, v)
	case time.Time:
		e.Time(f.Key, v)
	case error:
		e.AnErr(f.Key, v)
	default:
		e.Interface(f.Key, v)
	}
}

// plain is the value stored by the collector: errors and times become strings.
func (f Field) plain() interface{} {
	switch v := f.Value.(type) {
	case error:
		return v.Error()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}

func String(key, value string) Field { return Field{key, value} }

func Int(key string, value int) Field { return Field{key, value} }

func Int64(key string, value int64) Field { return Field{key, value} }

func Float64(key string, value float64) Field { return Field{key, value} }

func Bool(key string, value bool) Field { return Field{key, value} }

func Time(key string, value time.Time) Field { return Field{key, value} }

func Any(key string, value interface{}) Field { return Field{key, value} }

// Error logs err under "error".
func Error(err error) Field { return Field{"error", err} }

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{key, int64(value / time.Millisecond)}
}

// Strings logs values joined by ", ".
func Strings(key string, values []string) Field {
	return Field{key, strings.Join(values, ", ")}
}

// Date logs the civil date of t as YYYY-MM-DD.
func Date(key string, t time.Time) Field {
	return Field{key, t.Format("2006-01-02")}
}
