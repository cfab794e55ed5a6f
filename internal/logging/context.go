package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const loggerKey contextKey = iota

// WithLoggerCtx returns a new context carrying l.
func WithLoggerCtx(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFromCtx returns the logger from context, or nil if not set.
func LoggerFromCtx(ctx context.Context) *Logger {
	l, _ := ctx.Value(loggerKey).(*Logger)
	return l
}

// FromCtx returns the logger carried by ctx, falling back to base and then
// to the global logger.
func FromCtx(ctx context.Context, base *Logger) *Logger {
	if l := LoggerFromCtx(ctx); l != nil {
		return l
	}
	if base != nil {
		return base
	}
	return Global()
}

// NewTickID returns a fresh tick correlation ID.
func NewTickID() string {
	return uuid.NewString()
}

// StartTick derives a tick-scoped logger from base, stores it in ctx and
// returns both. An existing tick ID on the logger already in ctx is reused,
// so a tick triggered by the scheduler keeps the scheduler's ID.
func StartTick(ctx context.Context, base *Logger) (context.Context, *Logger) {
	if l := LoggerFromCtx(ctx); l != nil && l.TickID() != "" {
		if base == nil {
			return ctx, l
		}
		tl := base.WithTickID(l.TickID())
		return WithLoggerCtx(ctx, tl), tl
	}
	if base == nil {
		base = Global()
	}
	tl := base.WithTickID(NewTickID())
	return WithLoggerCtx(ctx, tl), tl
}
