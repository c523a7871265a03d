// Package requestctx carries request-scoped values (logger, trace
// metadata) through context without giving the rest of the codebase
// access to the keys.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	traceKey  struct{}
)

var fallback = zap.NewNop()

// TraceInfo is the trace metadata extracted from an incoming request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// WithLogger returns a context carrying the given logger. A nil logger
// is replaced with the shared no-op instance so Logger never returns nil.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = fallback
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the context's logger, or a no-op logger when none was set.
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return fallback
}

// NoopLogger is the shared no-op instance Logger falls back to.
func NoopLogger() *zap.Logger { return fallback }

// WithTrace returns a context carrying the request's trace metadata.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey{}, info)
}

// Trace returns the trace metadata and whether any was set.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	return info, ok
}

// TraceID is a shorthand for the trace identifier, empty when unset.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}
