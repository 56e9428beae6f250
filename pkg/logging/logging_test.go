package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/hyp3rd/countd/pkg/config"
)

const attributeCountWithTrace = 3

func TestWithTraceAddsSpanContext(t *testing.T) {
	t.Parallel()

	ctx, span := trace.NewTracerProvider().Tracer("test").Start(context.Background(), "span")
	defer span.End()

	attrs := withTrace(ctx, []attribute.KeyValue{attribute.String("foo", "bar")})
	if len(attrs) < attributeCountWithTrace {
		t.Fatalf("expected trace attributes plus payload, got %d", len(attrs))
	}

	if attrs[0].Key != "trace_id" {
		t.Fatalf("expected trace_id first, got %s", attrs[0].Key)
	}
}

func TestWithTraceNoSpan(t *testing.T) {
	t.Parallel()

	attrs := withTrace(context.Background(), []attribute.KeyValue{attribute.String("foo", "bar")})
	if len(attrs) != 1 {
		t.Fatalf("expected only original attrs, got %d", len(attrs))
	}
}

func TestSlogAdapterWritesAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Info(context.Background(), "increment", attribute.Int64("count", 7))

	var entry map[string]any

	err := json.Unmarshal(buf.Bytes(), &entry)
	if err != nil {
		t.Fatalf("unmarshal slog output: %v", err)
	}

	if entry["count"] != float64(7) {
		t.Fatalf("expected count attribute, got %v", entry)
	}
}

func TestFromConfigErrorLevelDropsInfo(t *testing.T) {
	t.Parallel()

	adapter := applyLevelFilter(recordingAdapter{calls: &[]string{}}, "error")

	rec, ok := adapter.(infoDisabledAdapter)
	if !ok {
		t.Fatalf("expected infoDisabledAdapter, got %T", adapter)
	}

	inner, ok := rec.inner.(recordingAdapter)
	if !ok {
		t.Fatalf("expected recording inner adapter, got %T", rec.inner)
	}

	adapter.Info(context.Background(), "dropped")
	adapter.Debug(context.Background(), "dropped")
	adapter.Error(context.Background(), nil, "kept")

	if got := *inner.calls; len(got) != 1 || got[0] != "error" {
		t.Fatalf("expected only the error call to pass, got %v", got)
	}
}

func TestFromConfigAdapterSelection(t *testing.T) {
	t.Parallel()

	for _, adapterName := range []string{"slog", "zerolog", "zap", "std", ""} {
		adapter := FromConfig(config.LoggingConfig{Level: "info", Adapter: adapterName})
		if adapter == nil {
			t.Fatalf("adapter %q: FromConfig returned nil", adapterName)
		}
	}
}

type recordingAdapter struct {
	calls *[]string
}

func (r recordingAdapter) Info(context.Context, string, ...attribute.KeyValue) {
	*r.calls = append(*r.calls, "info")
}

func (r recordingAdapter) Debug(context.Context, string, ...attribute.KeyValue) {
	*r.calls = append(*r.calls, "debug")
}

func (r recordingAdapter) Error(context.Context, error, string, ...attribute.KeyValue) {
	*r.calls = append(*r.calls, "error")
}
