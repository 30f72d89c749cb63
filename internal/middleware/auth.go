// Package middleware provides HTTP middleware for the storefront API
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eel-studio/storefront/internal/errors"
	internalhttputil "github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/logging"
)

// Claims are the Supabase access token claims the storefront reads.
type Claims struct {
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserMetadata is the profile data the identity provider attaches to the token.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

// DisplayName prefers full_name over name.
func (m UserMetadata) DisplayName() string {
	if m.FullName != "" {
		return m.FullName
	}
	return m.Name
}

// Identity is the caller resolved from a verified token.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

type nameKey struct{}

// AuthMiddleware verifies HS256 access tokens signed with the project's JWT secret.
// Requests without a valid token continue unauthenticated; protected routes add RequireUserID.
type AuthMiddleware struct {
	secret   []byte
	audience string
	logger   *logging.Logger
}

// NewAuthMiddleware creates a new authentication middleware. audience may be empty.
func NewAuthMiddleware(secret []byte, audience string, logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret:   secret,
		audience: audience,
		logger:   logger,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.validateToken(tokenString)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Debug("Token rejected; continuing unauthenticated")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{
			UserID: claims.Subject,
			Email:  claims.Email,
			Name:   claims.UserMetadata.DisplayName(),
			Role:   claims.Role,
		})))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// validateToken validates a JWT token and returns claims
func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "invalid claims")
	}
	if claims.Subject == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing sub")
	}
	return claims, nil
}

// WithIdentity stores id on ctx under the logging keys.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, logging.UserIDKey, id.UserID)
	if id.Email != "" {
		ctx = context.WithValue(ctx, logging.EmailKey, id.Email)
	}
	if id.Role != "" {
		ctx = context.WithValue(ctx, logging.RoleKey, id.Role)
	}
	if id.Name != "" {
		ctx = context.WithValue(ctx, nameKey{}, id.Name)
	}
	return ctx
}

// IdentityFrom returns the caller, if authenticated.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id := Identity{
		UserID: logging.GetUserID(ctx),
		Email:  logging.GetEmail(ctx),
		Role:   logging.GetRole(ctx),
	}
	id.Name, _ = ctx.Value(nameKey{}).(string)
	return id, id.UserID != ""
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// RequireUserID middleware ensures user ID is present in context
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			internalhttputil.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
