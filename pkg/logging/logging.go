// Package logging builds the structured loggers shared by the CLI, batch loader and API
package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// New creates a logger writing to w at the named level ("debug", "info", "warn", "error")
func New(w io.Writer, level, prefix string) (*charmlog.Logger, error) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: lvl <= charmlog.DebugLevel,
	}), nil
}

// Discard returns a logger that drops everything
func Discard() *charmlog.Logger {
	return charmlog.NewWithOptions(io.Discard, charmlog.Options{Level: charmlog.FatalLevel})
}

// WithContext stores a logger in ctx
func WithContext(ctx context.Context, logger *charmlog.Logger) context.Context {
	return charmlog.WithContext(ctx, logger)
}

// FromContext returns the logger stored in ctx, or the default logger
func FromContext(ctx context.Context) *charmlog.Logger {
	return charmlog.FromContext(ctx)
}
