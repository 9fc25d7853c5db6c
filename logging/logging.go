// Package logging is the process-wide leveled logger used by the Vulkan core.
//
// The active logger is stored atomically so that calls from any goroutine see
// a consistent handler. Init and Close are serialised by a mutex that also
// guards the open log file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// LevelTrace sits below slog.LevelDebug and carries the most verbose
// diagnostics (full format and present mode lists, per-candidate queries).
const LevelTrace = slog.Level(-8)

// DefaultTimeLayout matches the "2006-01-02 15:04:05" date/separator pair.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// Options configures Init.
type Options struct {
	// FilePath appends log records to this file in addition to Console.
	// Empty disables the file sink.
	FilePath string
	// Debug enables debug level records.
	Debug bool
	// Trace enables trace level records. Implies Debug.
	Trace bool
	// TimeLayout formats record timestamps. Defaults to DefaultTimeLayout.
	TimeLayout string
	// Console receives every record. Defaults to os.Stderr, like the logger
	// in place before Init.
	Console io.Writer
}

var (
	mu        sync.Mutex
	file      *os.File
	level     slog.LevelVar
	loggerPtr atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	loggerPtr.Store(slog.New(newHandler(defaultConsole(), DefaultTimeLayout)))
}

// defaultConsole is the console sink used before Init and when Options
// names none.
func defaultConsole() io.Writer {
	return os.Stderr
}

// Init replaces the process-wide logger. A previously opened log file is
// closed first.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if err := closeFileLocked(); err != nil {
		return err
	}

	console := opts.Console
	if console == nil {
		console = defaultConsole()
	}
	out := console
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return errors.Wrapf(err, "logging: open %s", opts.FilePath)
		}
		file = f
		out = io.MultiWriter(console, f)
	}

	switch {
	case opts.Trace:
		level.Set(LevelTrace)
	case opts.Debug:
		level.Set(slog.LevelDebug)
	default:
		level.Set(slog.LevelInfo)
	}

	layout := opts.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	loggerPtr.Store(slog.New(newHandler(out, layout)))
	return nil
}

// Close flushes and closes the log file, if any. Console logging continues.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeFileLocked()
}

func closeFileLocked() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// SetLogger installs l as the process-wide logger. Passing nil restores the
// default stderr logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(newHandler(defaultConsole(), DefaultTimeLayout))
	}
	loggerPtr.Store(l)
}

// Logger returns the active logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func newHandler(w io.Writer, layout string) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: &level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().Format(layout))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			return a
		},
	})
}

// IsTraceEnabled reports whether trace records are written. Callers use it to
// skip building expensive diagnostic strings.
func IsTraceEnabled() bool {
	return Logger().Enabled(context.Background(), LevelTrace)
}

// IsDebugEnabled reports whether debug records are written.
func IsDebugEnabled() bool {
	return Logger().Enabled(context.Background(), slog.LevelDebug)
}

func logf(lvl slog.Level, format string, args ...any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.Log(ctx, lvl, fmt.Sprintf(format, args...))
}

func Trace(format string, args ...any) { logf(LevelTrace, format, args...) }
func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }
func Info(format string, args ...any)  { logf(slog.LevelInfo, format, args...) }
func Warn(format string, args ...any)  { logf(slog.LevelWarn, format, args...) }
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }
