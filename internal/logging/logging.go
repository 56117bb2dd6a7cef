package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level written to the log file (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr mirrors records at StderrLevel or above to stderr.
	WriteToStderr bool
	// StderrLevel is the minimum level mirrored to stderr (default: warn).
	StderrLevel string
	// Stderr overrides the mirror destination; nil means os.Stderr.
	Stderr io.Writer
}

// DefaultConfig returns defaults for logging into dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		Level:         "info",
		FilePath:      LogPath(dataDir),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
		StderrLevel:   "warn",
	}
}

// DebugConfig returns configuration for debug mode: everything everywhere.
func DebugConfig(dataDir string) Config {
	cfg := DefaultConfig(dataDir)
	cfg.Level = "debug"
	cfg.StderrLevel = "debug"
	return cfg
}

// Setup initializes logging and returns the logger and a cleanup function
// that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var handlers []slog.Handler
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: parseLevel(cfg.Level),
		}))
		cleanup = func() { _ = writer.Close() }
	}

	if cfg.WriteToStderr {
		out := cfg.Stderr
		if out == nil {
			out = os.Stderr
		}
		stderrLevel := cfg.StderrLevel
		if stderrLevel == "" {
			stderrLevel = "warn"
		}
		handlers = append(handlers, slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: parseLevel(stderrLevel),
		}))
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), cleanup, nil
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), cleanup, nil
	}
	return slog.New(fanout(handlers)), cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level (exported for the log viewer).
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}

// fanout dispatches each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
