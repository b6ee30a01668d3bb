// Package obs provides the engine's single logging entry point, a thin
// wrapper around log/slog in the style of the wider product family's
// pkg/logger: a package-level singleton configured once by Init and read
// by Get, defaulting to a sane configuration if nobody calls Init first.
package obs

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// Config controls the process-wide logger.
type Config struct {
	// Level is one of "DEBUG", "INFO", "WARN", "ERROR". Defaults to INFO.
	Level string
	// JSON selects slog's JSON handler; otherwise text.
	JSON bool
}

var (
	once   sync.Once
	logger *slog.Logger
	mu     sync.Mutex
)

// Init configures the global logger. Safe to call once at process
// startup; subsequent calls are ignored, matching the once.Do pattern
// used elsewhere in the product family so tests and embedders can't
// race reinitializing it mid-query.
func Init(cfg Config) {
	once.Do(func() {
		logger = build(cfg)
	})
}

func build(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

// Get returns the global logger, initializing it with defaults on first
// use if Init was never called.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build(Config{Level: "INFO"})
	}
	return logger
}

// WithQuery returns a child logger tagged with a query id, used by the
// executor to correlate log lines across the pipeline stages for one
// statement.
func WithQuery(ctx context.Context, queryID string) *slog.Logger {
	return Get().With("query_id", queryID)
}
