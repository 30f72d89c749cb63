package middleware

import (
	"net/http"
	"strings"

	"github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/logging"
)

// AdminGuard admits only callers on the operator allow-list.
type AdminGuard struct {
	emails map[string]struct{}
	ids    map[string]struct{}
	logger *logging.Logger
}

// NewAdminGuard builds a guard from allow-listed emails and user ids. Emails match case-insensitively.
func NewAdminGuard(emails, userIDs []string, logger *logging.Logger) *AdminGuard {
	g := &AdminGuard{
		emails: make(map[string]struct{}, len(emails)),
		ids:    make(map[string]struct{}, len(userIDs)),
		logger: logger,
	}
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			g.emails[e] = struct{}{}
		}
	}
	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" {
			g.ids[id] = struct{}{}
		}
	}
	return g
}

// IsAdmin reports whether id is allow-listed.
func (g *AdminGuard) IsAdmin(id Identity) bool {
	if id.UserID == "" {
		return false
	}
	if _, ok := g.ids[id.UserID]; ok {
		return true
	}
	_, ok := g.emails[strings.ToLower(id.Email)]
	return ok && id.Email != ""
}

// Handler rejects unauthenticated callers with 401 and everyone else off the list with 403.
func (g *AdminGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			httputil.Unauthorized(w, "")
			return
		}
		if !g.IsAdmin(id) {
			g.logger.LogSecurityEvent(r.Context(), "admin_access_denied", map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			})
			httputil.Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
