// Package logging defines the structured-logging contract used across the
// project. Call sites depend on the interface only; the implementation can
// be swapped without touching them.
package logging

import "context"

// Logger is a leveled, context-aware logger. Variadic args are key-value
// pairs:
//
//	log.Info(ctx, "upload stored", "owner", ownerID, "size", size)
type Logger interface {
	// Debug logs detail useful only when diagnosing.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs normal operation.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but recoverable conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs on
	// every record.
	With(args ...any) Logger
}
