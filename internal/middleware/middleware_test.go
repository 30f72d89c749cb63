package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
	"github.com/eel-studio/storefront/supabase/client"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminGuard(t *testing.T) {
	guard := NewAdminGuard([]string{" Owner@EEL.studio "}, []string{"ops-1"}, logging.NewDiscard())

	tests := []struct {
		name string
		id   *Identity
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"buyer", &Identity{UserID: "u1", Email: "buyer@example.com"}, http.StatusForbidden},
		{"email match", &Identity{UserID: "u2", Email: "owner@eel.studio"}, http.StatusOK},
		{"id match", &Identity{UserID: "ops-1"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.id))
			}
			rr := httptest.NewRecorder()
			guard.Handler(okHandler()).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAdminGuard_EmptyEmailNeverMatches(t *testing.T) {
	guard := NewAdminGuard([]string{""}, nil, logging.NewDiscard())
	if guard.IsAdmin(Identity{UserID: "u1"}) {
		t.Error("IsAdmin() = true for identity without email")
	}
}

func TestCORSMiddleware(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://eel.studio", ".eel-preview.app"})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://eel.studio", true},
		{"https://pr-12.eel-preview.app", true},
		{"https://evil-eel.studio", false},
		{"https://eel-preview.app.evil.com", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", tt.origin)
		rr := httptest.NewRecorder()
		m.Handler(okHandler()).ServeHTTP(rr, req)

		got := rr.Header().Get("Access-Control-Allow-Origin") == tt.origin
		if got != tt.allowed {
			t.Errorf("origin %q allowed = %v, want %v", tt.origin, got, tt.allowed)
		}
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	m := NewCORSMiddleware([]string{"*"})
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/orders/o-1", nil)
	req.Header.Set("Origin", "https://eel.studio")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()

	called := false
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })).ServeHTTP(rr, req)

	if called {
		t.Error("preflight reached the next handler")
	}
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Access-Control-Allow-Methods not set")
	}
}

func TestRateLimiter_RejectsWithJSON(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.NewDiscard())
	handler := rl.Handler(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.RemoteAddr = "203.0.113.9:5123"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := send(); rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", rr.Code, http.StatusOK)
	}
	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	var body httputil.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code == "" {
		t.Error("error body has no code")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10, logging.NewDiscard())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("old")
	now = now.Add(5 * time.Minute)
	rl.getLimiter("fresh")
	now = now.Add(6 * time.Minute)

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Error("fresh visitor was removed")
	}
}

func TestTracingMiddleware(t *testing.T) {
	m := NewTracingMiddleware(logging.NewDiscard())

	var traceID, requestID string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logging.GetTraceID(r.Context())
		requestID = client.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "trace-abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if traceID != "trace-abc" {
		t.Errorf("trace id = %q, want trace-abc", traceID)
	}
	if requestID != "trace-abc" {
		t.Errorf("request id = %q, want trace-abc", requestID)
	}
	if got := rr.Header().Get(TraceHeader); got != "trace-abc" {
		t.Errorf("response header = %q, want trace-abc", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get(TraceHeader) == "" {
		t.Error("trace id not generated")
	}
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := mux.NewRouter()
	r.Use(MetricsMiddleware("storefront", m))
	r.Handle("/api/orders/{id}", okHandler())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders/o-123", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	n, err := testutil.GatherAndCount(m.Registry, "storefront_http_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}
