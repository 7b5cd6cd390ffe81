package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	h := Middleware(noop.NewTracerProvider().Tracer("test"), "obs-test")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(requestCounter.WithLabelValues("obs-test", "/brew", http.MethodGet, "418"))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/brew", nil))
	if rw.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rw.Code)
	}
	after := testutil.ToFloat64(requestCounter.WithLabelValues("obs-test", "/brew", http.MethodGet, "418"))
	if after-before != 1 {
		t.Fatalf("expected one counted request, got %v", after-before)
	}

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if got := testutil.ToFloat64(requestCounter.WithLabelValues("obs-test", "/metrics", http.MethodGet, "418")); got != 0 {
		t.Fatalf("metrics scrapes must not be counted, got %v", got)
	}
}
