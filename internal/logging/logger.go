// Package logging defines the structured-logging interface used across
// coursestore together with its slog and zap implementations.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "session opened", "account_id", id, "ttl", ttl)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Options selects and tunes a Logger implementation.
type Options struct {
	Backend string // "slog" or "zap"
	Format  string // "text" or "json"; zap always writes JSON
	Level   string // "debug", "info", "warn", "error"
}

// New builds a Logger writing to w.
func New(opts Options, w io.Writer) (Logger, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		return NewSlog(w, opts.Format, opts.Level)
	case "zap":
		return NewZap(w, opts.Level)
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}
