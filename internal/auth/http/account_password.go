package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/signetauth/signet/internal/auth/service"
	"github.com/signetauth/signet/pkg/authsdk"
	"github.com/signetauth/signet/pkg/httpx"
	"github.com/signetauth/signet/pkg/slogx"
)

// PasswordHandler serves POST /account/password. The subject comes from the
// bearer token; the form carries current_password and new_password. A
// successful change revokes every refresh token the user holds, so other
// devices have to sign in again with the new secret.
type PasswordHandler struct {
	Credentials *service.CredentialValidator
}

func (h *PasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	current := r.Form.Get("current_password")
	next := r.Form.Get("new_password")
	if current == "" || next == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	err := h.Credentials.ChangePassword(ctx, userID, current, next, time.Now())
	switch {
	case err == nil:
		httpx.NoCache(w)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountLocked):
		authsdk.ErrInvalidGrant.WriteError(w)
	default:
		log.Error("password change failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
