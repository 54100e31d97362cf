// Package logging defines the structured-logging interface the rest of the
// server programs against, decoupling components from the concrete backend.
package logging

import "context"

// Logger is a context-aware structured logger. The variadic args are
// alternating key-value pairs:
//
//	log.Info(ctx, "starting server", "address", addr)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that attaches the given key-value pairs
	// to every record.
	With(args ...any) Logger
}
