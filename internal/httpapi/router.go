// Package httpapi exposes the storefront over HTTP: the option catalog, the
// configurator wizard, buyer order history, the admin console, the marketing
// product catalog and sign-in helpers.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/idempotency"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/metrics"
	"github.com/eel-studio/storefront/internal/middleware"
	"github.com/eel-studio/storefront/internal/orders"
	"github.com/eel-studio/storefront/internal/session"
	"github.com/eel-studio/storefront/internal/storage"
	"github.com/eel-studio/storefront/supabase/client"
)

const serviceName = "storefront"

// SessionCookie carries the configurator session token for hosts that prefer cookies.
const SessionCookie = "eel_configurator"

// AuthProvider is the identity provider used by the sign-in endpoints.
// *client.AuthClient satisfies it.
type AuthProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*client.AuthResponse, error)
	AuthorizeURL(provider, redirectTo string) string
}

// Deps are the collaborators the router is built from. Auth may be nil, which
// disables the sign-in endpoints. Locker defaults to a no-op lock.
type Deps struct {
	Catalog  storage.CatalogStore
	Products storage.ProductStore
	Sessions *session.Registry
	History  *orders.History
	Console  *orders.Console
	Auth     AuthProvider
	Locker   idempotency.Locker
	Health   func(ctx context.Context) error

	Authenticator *middleware.AuthMiddleware
	Admin         *middleware.AdminGuard
	CORS          *middleware.CORSMiddleware
	RateLimiter   *middleware.RateLimiter

	Metrics *metrics.Metrics
	Logger  *logging.Logger

	// SignInURL is returned to anonymous buyers who try to submit.
	SignInURL     string
	SecureCookies bool
}

type handler struct {
	Deps
}

// NewRouter wires every route and the middleware chain. Tracing and CORS wrap
// the router itself so unmatched routes and preflights are covered too.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logging.NewDiscard()
	}
	if d.Locker == nil {
		d.Locker = idempotency.NopLocker{}
	}
	h := &handler{Deps: d}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	if d.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(serviceName, d.Metrics))
	}
	if d.Authenticator != nil {
		r.Use(d.Authenticator.Handler)
	}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Handler)
	}

	api.HandleFunc("/catalog", h.getCatalog).Methods(http.MethodGet)
	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)

	api.HandleFunc("/auth/authorize", h.authorize).Methods(http.MethodGet)
	api.HandleFunc("/auth/signin", h.signIn).Methods(http.MethodPost)
	api.Handle("/auth/me", middleware.RequireUserID(http.HandlerFunc(h.me))).Methods(http.MethodGet)

	api.Handle("/orders", middleware.RequireUserID(http.HandlerFunc(h.listHistory))).Methods(http.MethodGet)

	cfg := api.PathPrefix("/configurator/sessions").Subrouter()
	cfg.HandleFunc("", h.createSession).Methods(http.MethodPost)
	cfg.HandleFunc("/{id}", h.getSession).Methods(http.MethodGet)
	cfg.HandleFunc("/{id}", h.deleteSession).Methods(http.MethodDelete)
	cfg.HandleFunc("/{id}/select", h.selectOption).Methods(http.MethodPost)
	cfg.HandleFunc("/{id}/advance", h.advance).Methods(http.MethodPost)
	cfg.HandleFunc("/{id}/retreat", h.retreat).Methods(http.MethodPost)
	cfg.HandleFunc("/{id}/jump", h.jump).Methods(http.MethodPost)
	cfg.HandleFunc("/{id}/submit", h.submit).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	if d.Admin != nil {
		admin.Use(d.Admin.Handler)
	} else {
		admin.Use(denyAll)
	}
	admin.HandleFunc("/orders", h.adminListOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}", h.adminUpdateOrder).Methods(http.MethodPatch)

	var root http.Handler = r
	if d.CORS != nil {
		root = d.CORS.Handler(root)
	}
	return middleware.NewTracingMiddleware(d.Logger).Handler(root)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.Health(ctx); err != nil {
			h.Logger.WithContext(ctx).WithError(err).Warn("health probe failed")
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, code, map[string]any{
		"status":    status,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r, errors.NotFound("route", r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.Forbidden(w, "admin access is not configured")
	})
}
