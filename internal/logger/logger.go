// Package logger provides the structured, leveled logger used across
// jobweave. It wraps log/slog and fans out to multiple writers (stdout
// plus an optional log file) with samber/slog-multi, the same shape
// the teacher project assembles its logger with (functional options,
// quiet mode, pluggable log file).
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the leveled logging surface the rest of jobweave depends
// on. It is satisfied by *logger rather than slog.Logger directly so
// call sites don't need to know about source-location skipping.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	With(args ...any) Logger
}

type logger struct {
	sl *slog.Logger
}

// Option configures a Logger built by New.
type Option func(*options)

type options struct {
	debug   bool
	format  string
	writers []io.Writer
	quiet   bool
}

// WithDebug enables debug-level logging.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithFormat selects "text" or "json" output. Defaults to "text".
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter adds an additional output writer (stdout is always
// included unless WithQuiet is also set).
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writers = append(o.writers, w) }
}

// WithLogFile tees output to f in addition to stdout.
func WithLogFile(f *os.File) Option {
	return func(o *options) {
		if f != nil {
			o.writers = append(o.writers, f)
		}
	}
}

// WithQuiet suppresses the default stdout writer; only writers added
// via WithWriter/WithLogFile receive output.
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// New builds a Logger from the given options.
func New(opts ...Option) Logger {
	o := &options{format: "text"}
	for _, opt := range opts {
		opt(o)
	}

	writers := o.writers
	if !o.quiet {
		writers = append([]io.Writer{os.Stdout}, writers...)
	}
	if len(writers) == 0 {
		writers = []io.Writer{io.Discard}
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: true}
	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		var h slog.Handler
		if o.format == "json" {
			h = slog.NewJSONHandler(w, handlerOpts)
		} else {
			h = slog.NewTextHandler(w, handlerOpts)
		}
		handlers = append(handlers, h)
	}

	var fanout slog.Handler
	if len(handlers) == 1 {
		fanout = handlers[0]
	} else {
		fanout = slogmulti.Fanout(handlers...)
	}

	return &logger{sl: slog.New(fanout)}
}

func (l *logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.sl.Enabled(ctx, level) {
		return
	}
	// Skip [Callers, log, Debug/Info/...] to attribute the log line to
	// the caller rather than this package.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.sl.Handler().Handle(ctx, r)
}

func (l *logger) Debug(msg string, args ...any) { l.log(context.Background(), slog.LevelDebug, msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.log(context.Background(), slog.LevelInfo, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.log(context.Background(), slog.LevelWarn, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.log(context.Background(), slog.LevelError, msg, args...) }

func (l *logger) Debugf(format string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}
func (l *logger) Infof(format string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
}
func (l *logger) Warnf(format string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, args...))
}
func (l *logger) Errorf(format string, args ...any) {
	l.log(context.Background(), slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *logger) With(args ...any) Logger {
	return &logger{sl: l.sl.With(args...)}
}
