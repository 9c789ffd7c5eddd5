package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/idx"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedUser(t *testing.T, st *Store) domain.User {
	t.Helper()

	u := domain.User{
		ID:            idx.New().String(),
		Username:      "alice-" + idx.New().String(),
		PreferredName: "Alice",
		PasswordHash:  "hash",
		Role:          "member",
		SecurityStamp: "stamp",
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func seedToken(t *testing.T, st *Store, userID string, expiresAt time.Time) domain.RefreshToken {
	t.Helper()

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		FamilyID:  idx.New().String(),
		TokenHash: "hash-" + idx.New().String(),
		SessionID: idx.New().String(),
		Scopes:    []string{"openid", "offline_access"},
		ExpiresAt: expiresAt,
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(context.Background(), rt))
	return rt
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip by id and username", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)

		byID, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Username, byID.Username)
		require.Equal(t, u.SecurityStamp, byID.SecurityStamp)

		byName, err := st.Users().GetUserByUsername(ctx, u.Username)
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)
	})

	t.Run("unknown user maps to ErrNotFound", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Users().GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("failed logins accumulate and lock at threshold", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		lockedUntil := time.Now().Add(5 * time.Minute)

		for i := 1; i <= 3; i++ {
			count, err := st.Users().RecordFailedLogin(ctx, u.ID, 3, lockedUntil)
			require.NoError(t, err)
			require.Equal(t, i, count)
		}

		locked, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, 3, locked.FailedLogins)
		require.NotNil(t, locked.LockedUntil)

		require.NoError(t, st.Users().ClearFailedLogins(ctx, u.ID))
		cleared, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, cleared.FailedLogins)
		require.Nil(t, cleared.LockedUntil)
	})

	t.Run("below threshold leaves no lock", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)

		_, err := st.Users().RecordFailedLogin(ctx, u.ID, 5, time.Now().Add(time.Hour))
		require.NoError(t, err)

		fresh, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Nil(t, fresh.LockedUntil)
	})

	t.Run("password update swaps hash and security stamp", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)

		require.NoError(t, st.Users().UpdatePasswordHash(ctx, u.ID, "new-hash", "new-stamp"))

		fresh, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", fresh.PasswordHash)
		require.Equal(t, "new-stamp", fresh.SecurityStamp)
	})

	t.Run("IsEmpty reflects the user count", func(t *testing.T) {
		st := newStore(t)

		empty, err := st.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		seedUser(t, st)
		empty, err = st.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}

func TestRefreshTokensRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("consume succeeds exactly once", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		rt := seedToken(t, st, u.ID, time.Now().Add(time.Hour))
		now := time.Now()

		consumed, err := st.RefreshTokens().ConsumeRefreshToken(ctx, rt.TokenHash, now)
		require.NoError(t, err)
		require.True(t, consumed.Consumed)
		require.NotNil(t, consumed.ConsumedAt)

		_, err = st.RefreshTokens().ConsumeRefreshToken(ctx, rt.TokenHash, now)
		require.ErrorIs(t, err, store.ErrAlreadyConsumed)
	})

	t.Run("expired tokens cannot be consumed", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		rt := seedToken(t, st, u.ID, time.Now().Add(-time.Minute))

		_, err := st.RefreshTokens().ConsumeRefreshToken(ctx, rt.TokenHash, time.Now())
		require.ErrorIs(t, err, store.ErrAlreadyConsumed)
	})

	t.Run("unknown hash is ErrNotFound", func(t *testing.T) {
		st := newStore(t)
		_, err := st.RefreshTokens().ConsumeRefreshToken(ctx, "missing", time.Now())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revoke family counts only live members", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)

		family := idx.New().String()
		for i := 0; i < 3; i++ {
			rt := domain.RefreshToken{
				ID:        idx.New().String(),
				UserID:    u.ID,
				FamilyID:  family,
				TokenHash: "fam-" + idx.New().String(),
				SessionID: "sess",
				ExpiresAt: time.Now().Add(time.Hour),
			}
			require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, rt))
		}

		n, err := st.RefreshTokens().RevokeFamily(ctx, family)
		require.NoError(t, err)
		require.Equal(t, 3, n)

		// Second pass finds nothing live.
		n, err = st.RefreshTokens().RevokeFamily(ctx, family)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("revoke all for user spares other users", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		other := seedUser(t, st)
		mine := seedToken(t, st, u.ID, time.Now().Add(time.Hour))
		theirs := seedToken(t, st, other.ID, time.Now().Add(time.Hour))

		require.NoError(t, st.RefreshTokens().RevokeAllUserRefreshTokens(ctx, u.ID))

		revoked, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, mine.TokenHash)
		require.NoError(t, err)
		require.True(t, revoked.Revoked)

		untouched, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, theirs.TokenHash)
		require.NoError(t, err)
		require.False(t, untouched.Revoked)
	})

	t.Run("delete expired prunes only stale rows", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		stale := seedToken(t, st, u.ID, time.Now().Add(-time.Hour))
		live := seedToken(t, st, u.ID, time.Now().Add(time.Hour))

		require.NoError(t, st.RefreshTokens().DeleteExpiredRefreshTokens(ctx))

		_, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, stale.TokenHash)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, live.TokenHash)
		require.NoError(t, err)
	})
}

func TestSessionsRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("sign out flips once", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		s := domain.Session{ID: idx.New().String(), UserID: u.ID, Scheme: "password", SignedIn: true}
		require.NoError(t, st.Sessions().CreateSession(ctx, s))

		was, err := st.Sessions().SignOutSession(ctx, s.ID)
		require.NoError(t, err)
		require.True(t, was)

		was, err = st.Sessions().SignOutSession(ctx, s.ID)
		require.NoError(t, err)
		require.False(t, was)
	})

	t.Run("unknown session is ErrNotFound", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Sessions().SignOutSession(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("user delete cascades", func(t *testing.T) {
		st := newStore(t)
		u := seedUser(t, st)
		s := domain.Session{ID: idx.New().String(), UserID: u.ID, Scheme: "password", SignedIn: true}
		require.NoError(t, st.Sessions().CreateSession(ctx, s))
		rt := seedToken(t, st, u.ID, time.Now().Add(time.Hour))

		require.NoError(t, st.Users().DeleteUser(ctx, u.ID))

		_, err := st.Sessions().GetSession(ctx, s.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, rt.TokenHash)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := seedUser(t, st)

	sentinel := context.Canceled
	err := st.WithTx(ctx, func(tx store.Tx) error {
		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			FamilyID:  "fam",
			TokenHash: "rollback-hash",
			SessionID: "sess",
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "rollback-hash")
	require.ErrorIs(t, err, store.ErrNotFound)
}
