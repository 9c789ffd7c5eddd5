package http

import (
	"net/http"
	"strings"

	"github.com/signetauth/signet/internal/auth/service"
	"github.com/signetauth/signet/pkg/authsdk"
	"github.com/signetauth/signet/pkg/httpx"
	"github.com/signetauth/signet/pkg/slogx"
)

// RevokeHandler serves POST /connect/revoke following the RFC 7009 spec. It
// will currently revoke refresh tokens only. Access tokens expire naturally.
// All tokens even if invalid/unknown return 200 OK to prevent token scanning
// attacks. The non-standard revoke_family flag extends revocation to the
// whole authorization family of the presented token.
type RevokeHandler struct {
	Refresh *service.RefreshTokenManager
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

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

	token := r.Form.Get("token")
	tokenTypeHint := r.Form.Get("token_type_hint")
	revokeFamily := r.Form.Get("revoke_family") == "true"

	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 3. Revoke the token. We only support refresh tokens at the moment.
	if tokenTypeHint == "" || tokenTypeHint == "refresh_token" {
		var err error
		if revokeFamily {
			err = h.Refresh.RevokeFamilyOf(ctx, token)
		} else {
			err = h.Refresh.Revoke(ctx, token)
		}
		if err != nil {
			// Per RFC 7009, the server responds 200 OK even if the token is invalid/unknown.
			log.Warn("revoke refresh failed", "err", err)
		}
	}

	// 4. Return 200 OK with an empty JSON body
	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
