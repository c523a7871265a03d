package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerFallsBackToNoop(t *testing.T) {
	if Logger(context.Background()) != NoopLogger() {
		t.Fatal("expected noop logger for a bare context")
	}
	ctx := WithLogger(context.Background(), nil)
	if Logger(ctx) != NoopLogger() {
		t.Fatal("expected nil logger to be replaced with the noop instance")
	}

	logger := zap.NewExample()
	if Logger(WithLogger(context.Background(), logger)) != logger {
		t.Fatal("expected the stored logger back")
	}
}

func TestTraceRoundTrip(t *testing.T) {
	if _, ok := Trace(context.Background()); ok {
		t.Fatal("expected no trace on a bare context")
	}
	if TraceID(context.Background()) != "" {
		t.Fatal("expected empty trace id on a bare context")
	}

	info := TraceInfo{TraceID: "abc123", SpanID: "def456", Sampled: true, ProjectID: "demo"}
	ctx := WithTrace(context.Background(), info)
	got, ok := Trace(ctx)
	if !ok || got != info {
		t.Fatalf("unexpected trace metadata %+v", got)
	}
	if TraceID(ctx) != "abc123" {
		t.Fatalf("unexpected trace id %q", TraceID(ctx))
	}
}
