package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerEndpointForms(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
	}{
		{"url", "http://127.0.0.1:4318"},
		{"host port", "127.0.0.1:4318"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := InitTracer(context.Background(), TracerConfig{
				ServiceName:    "svc",
				ServiceVersion: "1.0.0",
				Endpoint:       tt.endpoint,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// Nothing was exported, so shutdown does not dial the collector.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = tp.Shutdown(ctx)
		})
	}
}

func TestSetGlobalAndStartSpan(t *testing.T) {
	orig := otel.GetTracerProvider()
	defer otel.SetTracerProvider(orig)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	SetGlobal(tp)

	ctx, span := StartSpan(context.Background(), SpanHTTPRequest)
	SetSpanError(ctx, errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != SpanHTTPRequest {
		t.Errorf("expected span name %s, got %s", SpanHTTPRequest, spans[0].Name)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected recorded error event, got %d events", len(spans[0].Events))
	}
}

func TestNewResourceCarriesIdentity(t *testing.T) {
	res, err := newResource("svc", "2.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := map[string]bool{}
	for _, kv := range res.Attributes() {
		found[string(kv.Key)] = true
	}
	for _, key := range []string{"service.name", "service.version", "service.instance.id"} {
		if !found[key] {
			t.Errorf("expected resource attribute %s", key)
		}
	}
}
