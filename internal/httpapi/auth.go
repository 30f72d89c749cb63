package httpapi

import (
	stderrors "errors"
	"net/http"
	"net/url"

	"github.com/eel-studio/storefront/internal/errors"
	"github.com/eel-studio/storefront/internal/httputil"
	"github.com/eel-studio/storefront/internal/middleware"
	"github.com/eel-studio/storefront/supabase/client"
)

var oauthProviders = map[string]bool{"google": true, "kakao": true}

func (h *handler) authorize(w http.ResponseWriter, r *http.Request) {
	if h.Auth == nil {
		httputil.WriteError(w, r, errors.Unavailable("sign-in is not configured", nil))
		return
	}
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = "google"
	}
	if !oauthProviders[provider] {
		httputil.WriteError(w, r, errors.InvalidInput("unsupported provider").WithDetails("provider", provider))
		return
	}
	redirectTo := r.URL.Query().Get("redirect_to")
	if redirectTo != "" {
		if u, err := url.Parse(redirectTo); err != nil || !u.IsAbs() {
			httputil.WriteError(w, r, errors.InvalidInput("redirect_to must be an absolute URL"))
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": h.Auth.AuthorizeURL(provider, redirectTo)})
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type signInResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	ExpiresIn    int                  `json:"expires_in"`
	User         *middleware.Identity `json:"user,omitempty"`
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	if h.Auth == nil {
		httputil.WriteError(w, r, errors.Unavailable("sign-in is not configured", nil))
		return
	}
	var req signInRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	resp, err := h.Auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *client.APIError
		if stderrors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			h.Logger.LogSecurityEvent(r.Context(), "signin_failed", map[string]interface{}{"status": apiErr.StatusCode})
			httputil.WriteError(w, r, errors.Unauthorized("Invalid email or password"))
			return
		}
		httputil.WriteError(w, r, errors.Unavailable("identity provider unavailable", err))
		return
	}

	out := signInResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	if resp.User != nil {
		out.User = &middleware.Identity{
			UserID: resp.User.ID,
			Email:  resp.User.Email,
			Name:   resp.User.FullName(),
			Role:   resp.User.Role,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":    id,
		"isAdmin": h.Admin != nil && h.Admin.IsAdmin(id),
	})
}
