package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog wrapper with typed fields. Error and warn entries are
// also fed to an optional LogCollector.
type Logger struct {
	zl        zerolog.Logger
	base      []Field
	collector *atomic.Pointer[LogCollector]
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	zl := zerolog.New(out).Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl, collector: new(atomic.Pointer[LogCollector])}, nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	return f, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop(), collector: new(atomic.Pointer[LogCollector])}
}

// With returns a child logger that stamps fields on every entry. The child
// shares the parent's collector.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	base := make([]Field, 0, len(l.base)+len(fields))
	base = append(append(base, l.base...), fields...)
	return &Logger{zl: ctx.Logger(), base: base, collector: l.collector}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(l.zl.Debug(), "", msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(l.zl.Info(), "", msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(l.zl.Warn(), "warn", msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(l.zl.Error(), "error", msg, fields) }

// write must be called directly from a level method so caller frames line up.
func (l *Logger) write(ev *zerolog.Event, collectAs, msg string, fields []Field) {
	if ev != nil {
		for _, f := range fields {
			f.addTo(ev)
		}
		ev.Msg(msg)
	}
	if collectAs != "" {
		l.collect(collectAs, msg, fields)
	}
}

func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}
	c := l.collector.Load()
	if c == nil {
		return
	}
	// frames: collect -> write -> Error/Warn -> caller
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(3); ok {
		caller = fmt.Sprintf("%s:%d", shortPath(file), line)
	}
	m := make(map[string]interface{}, len(l.base)+len(fields))
	for _, f := range l.base {
		m[f.Key] = f.value()
	}
	for _, f := range fields {
		m[f.Key] = f.value()
	}
	c.AddLog(level, msg, m, caller)
}

// shortPath keeps the package directory and file name.
func shortPath(file string) string {
	dir, name := filepath.Split(file)
	return filepath.Join(filepath.Base(dir), name)
}

// AddCollector starts aggregating warn and error entries, replacing any
// previous collector.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if old := l.collector.Swap(NewLogCollector(config)); old != nil {
		old.Close()
	}
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	if l.collector == nil {
		return
	}
	if old := l.collector.Swap(nil); old != nil {
		old.Close()
	}
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt64
	kindFloat64
	kindBool
	kindError
	kindAny
)

// Field is a typed key/value attached to a log entry.
type Field struct {
	Key  string
	kind fieldKind
	str  string
	num  int64
	flt  float64
	val  interface{}
}

func (f Field) addTo(ev *zerolog.Event) {
	switch f.kind {
	case kindString:
		ev.Str(f.Key, f.str)
	case kindInt64:
		ev.Int64(f.Key, f.num)
	case kindFloat64:
		ev.Float64(f.Key, f.flt)
	case kindBool:
		ev.Bool(f.Key, f.num != 0)
	case kindError:
		ev.Str(f.Key, f.str)
	default:
		ev.Interface(f.Key, f.val)
	}
}

func (f Field) addToContext(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString, kindError:
		return c.Str(f.Key, f.str)
	case kindInt64:
		return c.Int64(f.Key, f.num)
	case kindFloat64:
		return c.Float64(f.Key, f.flt)
	case kindBool:
		return c.Bool(f.Key, f.num != 0)
	default:
		return c.Interface(f.Key, f.val)
	}
}

func (f Field) value() interface{} {
	switch f.kind {
	case kindString, kindError:
		return f.str
	case kindInt64:
		return f.num
	case kindFloat64:
		return f.flt
	case kindBool:
		return f.num != 0
	default:
		return f.val
	}
}

func String(key, value string) Field {
	return Field{Key: key, kind: kindString, str: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, kind: kindInt64, num: value}
}

// Uint64 saturates at MaxInt64.
func Uint64(key string, value uint64) Field {
	if value > 1<<63-1 {
		value = 1<<63 - 1
	}
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, kind: kindFloat64, flt: value}
}

func Bool(key string, value bool) Field {
	f := Field{Key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64(key, value.Milliseconds())
}

// Error logs under "error"; a nil error logs as an empty string.
func Error(err error) Field {
	f := Field{Key: zerolog.ErrorFieldName, kind: kindError}
	if err != nil {
		f.str = err.Error()
	}
	return f
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ","))
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, kind: kindAny, val: value}
}
