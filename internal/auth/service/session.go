package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/signetauth/signet/internal/auth/metrics"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/slogx"
)

// LogoutResult reports the session state around a logout call.
type LogoutResult struct {
	SignedInBefore bool
	SignedInAfter  bool
}

// SessionRevoker signs sessions out. Logout is deliberately decoupled from
// refresh token families: a signed-out session's refresh tokens keep working
// until they expire or are revoked through the revocation endpoint.
type SessionRevoker struct {
	Store store.Store
}

// Logout flips the session to signed-out and reports the before/after state.
// Logging out twice is not an error, the second call just observes an
// already signed-out session. An unknown session reports both states false.
func (s *SessionRevoker) Logout(ctx context.Context, sessionID string) (LogoutResult, error) {
	l := slogx.FromContext(ctx)

	wasSignedIn, err := s.Store.Sessions().SignOutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LogoutResult{}, nil
		}
		return LogoutResult{}, err
	}

	if wasSignedIn {
		metrics.SessionsSignedOut.Inc()
		l.Info("session signed out", slog.String("session_id", sessionID))
	}

	return LogoutResult{SignedInBefore: wasSignedIn, SignedInAfter: false}, nil
}
