package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/idx"
)

func seedSession(t *testing.T, st store.Store) domain.Session {
	t.Helper()
	ctx := context.Background()

	u := createTestUser(t, st, "session-user", "pw")
	s := domain.Session{
		ID:       idx.New().String(),
		UserID:   u.ID,
		Scheme:   "password",
		SignedIn: true,
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, s))
	return s
}

func TestSessionRevoker(t *testing.T) {
	ctx := context.Background()

	t.Run("logout flips signed_in and reports the transition", func(t *testing.T) {
		st := newTestStore(t)
		s := seedSession(t, st)
		revoker := &SessionRevoker{Store: st}

		result, err := revoker.Logout(ctx, s.ID)
		require.NoError(t, err)
		require.True(t, result.SignedInBefore)
		require.False(t, result.SignedInAfter)

		stored, err := st.Sessions().GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.False(t, stored.SignedIn)
	})

	t.Run("second logout observes signed-out state", func(t *testing.T) {
		st := newTestStore(t)
		s := seedSession(t, st)
		revoker := &SessionRevoker{Store: st}

		_, err := revoker.Logout(ctx, s.ID)
		require.NoError(t, err)

		result, err := revoker.Logout(ctx, s.ID)
		require.NoError(t, err)
		require.False(t, result.SignedInBefore)
		require.False(t, result.SignedInAfter)
	})

	t.Run("unknown session is a no-op", func(t *testing.T) {
		st := newTestStore(t)
		revoker := &SessionRevoker{Store: st}

		result, err := revoker.Logout(ctx, "no-such-session")
		require.NoError(t, err)
		require.False(t, result.SignedInBefore)
		require.False(t, result.SignedInAfter)
	})

	t.Run("logout leaves refresh tokens redeemable", func(t *testing.T) {
		st := newTestStore(t)
		s := seedSession(t, st)
		revoker := &SessionRevoker{Store: st}

		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Hour}
		var opaque string
		err := st.WithTx(ctx, func(tx store.Tx) error {
			var err error
			opaque, _, err = m.Mint(ctx, tx, s.UserID, s.ID,
				[]string{"openid", "offline_access"}, time.Now())
			return err
		})
		require.NoError(t, err)

		_, err = revoker.Logout(ctx, s.ID)
		require.NoError(t, err)

		// Session logout does not touch the token family.
		next, _, err := m.Redeem(ctx, opaque, time.Now())
		require.NoError(t, err)
		require.NotEmpty(t, next)
	})
}
