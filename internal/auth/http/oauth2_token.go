package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/service"
	"github.com/signetauth/signet/pkg/authsdk"
	"github.com/signetauth/signet/pkg/httpx"
	"github.com/signetauth/signet/pkg/slogx"
)

// TokenHandler serves POST /connect/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	// 3. Handle the grant type
	grantType := r.Form.Get("grant_type")
	switch grantType {
	case "password":
		h.handlePasswordGrant(w, r, r.Form)
	case "refresh_token":
		h.handleRefreshGrant(w, r, r.Form)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handlePasswordGrant(
	w http.ResponseWriter,
	r *http.Request,
	form url.Values,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	username := strings.TrimSpace(form.Get("username"))
	password := form.Get("password")
	requested := httpx.ParseSpaceDelimitedFields(form.Get("scope"))

	if username == "" || password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangePassword(ctx, username, password, requested)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrAccountLocked):
			// Both collapse into the same response so callers cannot tell a
			// locked account from a bad password.
			authsdk.ErrInvalidGrant.WriteError(w)
		default:
			log.Error("password grant failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, pair)
}

func writeTokenResponse(w http.ResponseWriter, pair *domain.TokenPair) {
	response := authsdk.TokenResponse{
		AccessToken:   pair.AccessToken,
		IdentityToken: pair.IdentityToken,
		RefreshToken:  pair.RefreshToken,
		TokenType:     "Bearer",
		ExpiresIn:     int(pair.ExpiresIn.Seconds()),
		Scope:         strings.TrimSpace(pair.Scope),
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

func (h *TokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request, form url.Values) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	refresh := form.Get("refresh_token")
	requested := httpx.ParseSpaceDelimitedFields(form.Get("scope"))

	if refresh == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.ExchangeRefreshToken(ctx, refresh, requested)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh),
			errors.Is(err, service.ErrTokenNoLongerValid):
			authsdk.ErrInvalidGrant.WriteError(w)
		default:
			log.Error("refresh_token grant failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	writeTokenResponse(w, pair)
}
