package http

import (
	"net/http"

	"github.com/signetauth/signet/internal/auth/service"
	"github.com/signetauth/signet/pkg/authsdk"
	"github.com/signetauth/signet/pkg/httpx"
	"github.com/signetauth/signet/pkg/slogx"
)

// LogoutHandler serves GET and POST /connect/logout. The session to sign out
// comes from the bearer token's sid claim; AuthnMiddleware has already
// verified the token and stashed it in the request context.
//
// Logout only touches the session record. Refresh tokens minted under the
// session stay redeemable until they expire or are revoked explicitly.
type LogoutHandler struct {
	SessionRevoker *service.SessionRevoker
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := httpx.SessionIDFromCtx(ctx)
	if sessionID == "" {
		// Token verified but carries no session; nothing to sign out.
		httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{})
		return
	}

	result, err := h.SessionRevoker.Logout(ctx, sessionID)
	if err != nil {
		log.Error("logout failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		SignedInBefore: result.SignedInBefore,
		SignedInAfter:  result.SignedInAfter,
	})
}
