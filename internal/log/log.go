package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu       sync.RWMutex
	logger   *slog.Logger
	minLevel = new(slog.LevelVar)
)

func init() {
	Configure(os.Stderr, FormatText)
}

// Configure replaces the output and format of the global logger. The
// current level is kept.
func Configure(w io.Writer, format Format) {
	opts := &slog.HandlerOptions{Level: minLevel}
	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	mu.Lock()
	logger = slog.New(h).With("service", "plancal")
	mu.Unlock()
}

// ParseLevel maps a config string to a Level; unknown values become info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		minLevel.Set(slog.LevelDebug)
	case LevelWarn:
		minLevel.Set(slog.LevelWarn)
	case LevelError:
		minLevel.Set(slog.LevelError)
	default:
		minLevel.Set(slog.LevelInfo)
	}
}

// Logger exposes the underlying slog logger for libraries that want one.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	Logger().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Logger().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	Logger().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	Logger().Error(msg, extended...)
}
