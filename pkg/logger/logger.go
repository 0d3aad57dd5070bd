package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	current *slog.Logger
	logFile *os.File
)

// Options selects the level, handler format and an optional log file.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string
	Output io.Writer // defaults to stderr
}

// Init configures the package logger. When File is set, records go to both
// Output and the file.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file '%s': %w", opts.File, err)
		}
		logFile = f
		out = io.MultiWriter(out, f)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		current = slog.New(slog.NewTextHandler(out, handlerOpts))
	case "json":
		current = slog.New(slog.NewJSONHandler(out, handlerOpts))
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}
	return nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Close closes the log file, if any, and resets the logger to the stderr
// fallback.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	current = nil
}

func closeFileLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// L returns the configured logger, falling back to a text logger on stderr.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return current
}

func Debugf(format string, v ...any) { L().Debug(fmt.Sprintf(format, v...)) }

func Info(msg string, args ...any) { L().Info(msg, args...) }

func Infof(format string, v ...any) { L().Info(fmt.Sprintf(format, v...)) }

func Warnf(format string, v ...any) { L().Warn(fmt.Sprintf(format, v...)) }

func Error(msg string, args ...any) { L().Error(msg, args...) }

func Errorf(format string, v ...any) { L().Error(fmt.Sprintf(format, v...)) }
