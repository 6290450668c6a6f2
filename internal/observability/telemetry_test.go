package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDisabledByDefault(t *testing.T) {
	global = &provider{enabled: false}
	if Enabled() {
		t.Fatal("expected tracing to be disabled until Init is called")
	}
}

func TestHTTPMiddlewarePassthroughWhenDisabled(t *testing.T) {
	global = &provider{enabled: false}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/topics", nil)
	HTTPMiddleware(next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected the wrapped handler to run")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through unchanged, got %d", rec.Code)
	}
}

func TestTraceIDFromContextEmptyWhenNoSpan(t *testing.T) {
	req := httptest.NewRequest("GET", "/topics", nil)
	if id := TraceIDFromContext(req); id != "" {
		t.Fatalf("expected empty trace id without an active span, got %q", id)
	}
}
