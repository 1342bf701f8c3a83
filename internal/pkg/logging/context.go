// Package logging carries a request-scoped slog.Logger through context.
package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	scopeKey
)

// Scope identifies the request a log line belongs to.
type Scope struct {
	RequestID string
	TraceID   string
}

// Attrs returns the non-empty ids as slog key/value pairs.
func (s Scope) Attrs() []any {
	attrs := make([]any, 0, 4)
	if s.RequestID != "" {
		attrs = append(attrs, "request_id", s.RequestID)
	}
	if s.TraceID != "" {
		attrs = append(attrs, "trace_id", s.TraceID)
	}
	return attrs
}

func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

func ScopeFrom(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeKey).(Scope)
	return scope
}

// WithLogger stores logger in ctx. Use Scoped to derive it from the request ids.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request logger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, slog.Default())
}

func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return fallback
}

// Scoped stores scope in ctx together with a logger annotated with its ids.
func Scoped(ctx context.Context, base *slog.Logger, scope Scope) (context.Context, *slog.Logger) {
	logger := base.With(scope.Attrs()...)
	ctx = WithScope(ctx, scope)
	return WithLogger(ctx, logger), logger
}

// NewTraceID returns 32 lowercase hex characters.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
