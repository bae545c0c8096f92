package trace

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeneratedIDLengths(t *testing.T) {
	if id := generateTraceID(); len(id) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(id))
	}
	if id := generateSpanID(); len(id) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(id))
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateTraceID()
		if seen[id] {
			t.Error("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestNewCycleReplacesTrace(t *testing.T) {
	ctx, first := NewCycle(context.Background())
	ctx, second := NewCycle(ctx)

	if first.TraceID == second.TraceID {
		t.Error("each cycle should get its own trace ID")
	}
	got, ok := FromContext(ctx)
	if !ok || got.TraceID != second.TraceID {
		t.Error("context should carry the latest cycle")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("should not find trace context in empty context")
	}
}

func TestSpanNested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "cycle")
	_, child := StartSpan(ctx, "playback")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child's parent should be parent's span")
	}

	child.SetAttr("fragments", 3)
	child.End()
	if child.Duration() < 0 {
		t.Error("duration should not be negative")
	}
	if child.Attrs["fragments"] != 3 {
		t.Error("span attribute mismatch")
	}
	if child.LogValue().Kind() != slog.KindGroup {
		t.Error("LogValue should be a group")
	}
}

func TestSpanDurationBeforeEnd(t *testing.T) {
	_, s := StartSpan(context.Background(), "open")
	if s.Duration() != 0 {
		t.Error("unfinished span should report zero duration")
	}
}

func TestMiddlewareContinuesTrace(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody)
	req.Header.Set(TraceIDKey, "abc123")
	req.Header.Set(SpanIDKey, "span9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "abc123" || seen.ParentSpanID != "span9" {
		t.Errorf("context = %+v, want continued trace", seen)
	}
	if rec.Header().Get(TraceIDKey) != "abc123" {
		t.Error("trace id should be echoed in the response")
	}
}

func TestMiddlewareStartsTrace(t *testing.T) {
	rec := httptest.NewRecorder()
	Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if len(rec.Header().Get(TraceIDKey)) != 32 {
		t.Error("middleware should start a new trace when none is sent")
	}
}

func TestLogger(t *testing.T) {
	ctx := WithContext(context.Background(), New())
	Logger(ctx).Info("test message")
	if Logger(context.Background()) != slog.Default() {
		t.Error("Logger without trace should be the default logger")
	}
}
