package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newInstrumentedRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware())
	return r
}

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := newInstrumentedRouter()
	r.Post("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	})

	req := httptest.NewRequest("POST", "/api/chat", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/chat", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_StatusLabels(t *testing.T) {
	r := newInstrumentedRouter()
	r.Post("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"projects":[]}`))
	})
	r.Post("/api/skills", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	tests := []struct {
		method string
		path   string
		status string
	}{
		{"POST", "/api/projects", "200"},
		{"POST", "/api/skills", "500"},
		{"GET", "/health", "503"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status))
			if val < 1 {
				t.Errorf("expected requests_total for %s %s => %s, got %f", tc.method, tc.path, tc.status, val)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/api/chat", "/api/chat"},
		{"/health", "/health"},
		{"/api/*", "/api"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestMetricsHandler_ViaPromhttp(t *testing.T) {
	r := newInstrumentedRouter()
	r.Post("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("POST", "/api/chat", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	metricsReq := httptest.NewRequest("GET", "/metrics", http.NoBody)
	metricsRR := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(metricsRR, metricsReq)

	body, _ := io.ReadAll(metricsRR.Body)
	if !strings.Contains(string(body), "portfolio_http_requests_total") {
		t.Error("expected portfolio_http_requests_total in /metrics output")
	}
}
