package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/observability"
	"github.com/kbukum/serverkit/server/middleware"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

func bufferLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	level := "debug"
	p, err := logger.Build(context.Background(), logger.Config{AppName: "test", Level: &level, Console: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p.Logger(), &buf
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	log, buf := bufferLogger(t)
	handler := middleware.Recovery(log)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("test panic")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body["error"] != "Internal server error" {
		t.Fatalf("unexpected error message: %s", body["error"])
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("expected the panic to be logged, got %q", buf.String())
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected http.ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesID(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(middleware.HeaderRequestID) == "" {
			t.Error("expected X-Request-Id in request headers")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("expected X-Request-Id in response headers")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	log, buf := bufferLogger(t)
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithContext(r.Context()).Info("handled")
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "existing-id-123")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(middleware.HeaderRequestID); got != "existing-id-123" {
		t.Fatalf("expected existing-id-123, got %s", got)
	}
	if !strings.Contains(buf.String(), "existing-id-123") {
		t.Errorf("expected the request id in the log record, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestNewCORSConfig(t *testing.T) {
	tests := []struct {
		origin      string
		credentials bool
	}{
		{"https://app.example.com", true},
		{"*", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			cfg := middleware.NewCORSConfig(tt.origin)
			if cfg.AllowCredentials != tt.credentials {
				t.Errorf("AllowCredentials = %v, want %v", cfg.AllowCredentials, tt.credentials)
			}
			if len(cfg.AllowedHeaders) != 7 {
				t.Errorf("expected 7 allowed headers, got %v", cfg.AllowedHeaders)
			}
		})
	}
}

func TestCORS_SetHeaders(t *testing.T) {
	handler := middleware.CORS(middleware.NewCORSConfig("https://example.com"))(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://example.com")
	handler.ServeHTTP(rr, req)

	h := rr.Header()
	if got := h.Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("expected https://example.com, got %s", got)
	}
	if got := h.Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
		t.Fatalf("unexpected methods %q", got)
	}
	if got := h.Get("Access-Control-Expose-Headers"); got != "Set-Cookie" {
		t.Fatalf("expected Set-Cookie exposed, got %q", got)
	}
	if got := h.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials for a named origin, got %q", got)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := middleware.CORS(middleware.NewCORSConfig("*"))(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://anything.example")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected *, got %s", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("expected no credentials for the wildcard, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := middleware.CORS(middleware.NewCORSConfig("*"))(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not be called for OPTIONS preflight")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/v1/users", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS preflight, got %d", rr.Code)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	handler := middleware.CORS(middleware.NewCORSConfig("https://allowed.com"))(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for disallowed origin, got %s", got)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected the request to pass through, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Alt-Svc
// ---------------------------------------------------------------------------

func TestAltSvc(t *testing.T) {
	tests := []struct {
		port uint16
		want string
	}{
		{8443, `h3=":8443"; ma=2592000`},
		{0, `h3=":443"; ma=2592000`},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		middleware.AltSvc(tt.port)(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
		if got := rr.Header().Get("Alt-Svc"); got != tt.want {
			t.Errorf("port %d: Alt-Svc = %q, want %q", tt.port, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger_LogsRequest(t *testing.T) {
	log, buf := bufferLogger(t)
	handler := middleware.RequestLogger(log)(okHandler(http.StatusCreated))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/users", http.NoBody))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "Request completed") || !strings.Contains(out, "/api/users") {
		t.Errorf("expected a request record, got %q", out)
	}
}

func TestRequestLogger_Skip(t *testing.T) {
	log, buf := bufferLogger(t)
	called := false
	handler := middleware.RequestLogger(log, "/docs/openapi.json")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/docs/openapi.json", http.NoBody))

	if !called {
		t.Error("handler should still be called for skipped paths")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no record for a skipped path, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

func TestTracing_RecordsServerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	observability.SetGlobal(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	handler := middleware.Tracing()(okHandler(http.StatusBadGateway))
	req := httptest.NewRequest("GET", "/x", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "rid-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != observability.SpanHTTPRequest {
		t.Errorf("unexpected span name %q", spans[0].Name)
	}
	if spans[0].Status.Code.String() != "Error" {
		t.Errorf("expected error status for 502, got %v", spans[0].Status.Code)
	}
}

// ---------------------------------------------------------------------------
// InjectState
// ---------------------------------------------------------------------------

type appConfig struct{ Greeting string }

func TestInjectState_Gin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	values := config.Default("svc")
	state := config.NewState(config.LocalhostHTTP, nil)

	engine := gin.New()
	engine.GET("/", func(c *gin.Context) {
		if middleware.Values(c) != values {
			t.Error("Values(c) did not return the injected values")
		}
		if middleware.State(c).Variant() != config.LocalhostHTTP {
			t.Error("State(c) did not return the injected state")
		}
		app, ok := middleware.AppConfig[*appConfig](c)
		if !ok || app.Greeting != "hi" {
			t.Errorf("AppConfig = %v, %v", app, ok)
		}
		c.Status(http.StatusNoContent)
	})

	handler := middleware.InjectState(values, state, &appConfig{Greeting: "hi"})(engine)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestStateFromContext_Missing(t *testing.T) {
	if middleware.ValuesFromContext(context.Background()) != nil {
		t.Error("expected nil values")
	}
	if middleware.StateFromContext(context.Background()) != nil {
		t.Error("expected nil state")
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string

	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-before")
			next.ServeHTTP(w, r)
			order = append(order, "m1-after")
		})
	}
	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-before")
			next.ServeHTTP(w, r)
			order = append(order, "m2-after")
		})
	}

	chain := middleware.Chain(m1, nil, m2)
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("position %d: expected %s, got %s (full: %v)", i, v, order[i], order)
		}
	}
}

// ---------------------------------------------------------------------------
// statusWriter: Flush support
// ---------------------------------------------------------------------------

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestStatusWriter_Flush(t *testing.T) {
	fr := &flushRecorder{ResponseWriter: httptest.NewRecorder()}

	// statusWriter is internal; RequestLogger wraps the writer with it.
	handler := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(fr, httptest.NewRequest("GET", "/stream", http.NoBody))

	if !fr.flushed {
		t.Error("expected Flush to be delegated to underlying writer")
	}
}
