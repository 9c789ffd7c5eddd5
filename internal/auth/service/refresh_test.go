package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signetauth/signet/internal/auth/store"
)

func seedRefresh(t *testing.T, st store.Store, m *RefreshTokenManager) (string, string) {
	t.Helper()
	ctx := context.Background()

	u := createTestUser(t, st, "refresh-user", "pw")

	var opaque, familyID string
	err := st.WithTx(ctx, func(tx store.Tx) error {
		op, record, err := m.Mint(ctx, tx, u.ID, "sess-1",
			[]string{"openid", "offline_access"}, time.Now())
		opaque = op
		familyID = record.FamilyID
		return err
	})
	require.NoError(t, err)
	return opaque, familyID
}

func TestRefreshRedemption(t *testing.T) {
	ctx := context.Background()

	t.Run("redeeming twice kills the family", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Hour}
		opaque, familyID := seedRefresh(t, st, m)
		now := time.Now()

		next, rt, err := m.Redeem(ctx, opaque, now)
		require.NoError(t, err)
		require.NotEmpty(t, next)

		// Presenting the consumed original again is reuse.
		_, _, err = m.Redeem(ctx, opaque, now.Add(time.Second))
		require.ErrorIs(t, err, ErrInvalidRefresh)

		// The revocation committed: no member of the family is left to
		// revoke once the reuse error has been returned.
		revoked, err := st.RefreshTokens().RevokeFamily(ctx, familyID)
		require.NoError(t, err)
		require.Zero(t, revoked)

		// The replacement died with the family.
		_, _, err = m.Redeem(ctx, next, now.Add(2*time.Second))
		require.ErrorIs(t, err, ErrInvalidRefresh)

		stored, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, rt.TokenHash)
		require.NoError(t, err)
		require.True(t, stored.Revoked)
	})

	t.Run("family id is preserved across rotations", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Hour}
		opaque, familyID := seedRefresh(t, st, m)

		current := opaque
		for i := 0; i < 3; i++ {
			next, rt, err := m.Redeem(ctx, current, time.Now())
			require.NoError(t, err)
			require.Equal(t, familyID, rt.FamilyID)
			current = next
		}
	})

	t.Run("expired tokens are rejected without family damage", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Minute}
		opaque, _ := seedRefresh(t, st, m)

		_, _, err := m.Redeem(ctx, opaque, time.Now().Add(2*time.Minute))
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("reuse inside the leeway window still rotates", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{
			Store:       st,
			RefreshTTL:  time.Hour,
			ReuseLeeway: 30 * time.Second,
		}
		opaque, _ := seedRefresh(t, st, m)
		now := time.Now()

		first, _, err := m.Redeem(ctx, opaque, now)
		require.NoError(t, err)

		// Same token again within the leeway: tolerated, mints another
		// replacement instead of revoking the family.
		second, _, err := m.Redeem(ctx, opaque, now.Add(10*time.Second))
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		// Outside the leeway it is reuse.
		_, _, err = m.Redeem(ctx, opaque, now.Add(2*time.Minute))
		require.ErrorIs(t, err, ErrInvalidRefresh)

		// And the family, including both replacements, is gone.
		_, _, err = m.Redeem(ctx, first, now.Add(2*time.Minute))
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("concurrent redemption has exactly one winner", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Hour}
		opaque, _ := seedRefresh(t, st, m)
		now := time.Now()

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := m.Redeem(ctx, opaque, now)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins, losses int
		for err := range results {
			if err == nil {
				wins++
			} else {
				require.ErrorIs(t, err, ErrInvalidRefresh)
				losses++
			}
		}
		require.Equal(t, 1, wins)
		require.Equal(t, workers-1, losses)
	})
}

func TestRefreshRevocation(t *testing.T) {
	ctx := context.Background()

	t.Run("revoking an unknown token is not an error", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Hour}

		require.NoError(t, m.Revoke(ctx, "never-issued"))
		require.NoError(t, m.RevokeFamilyOf(ctx, "never-issued"))
	})

	t.Run("family revocation spans all members", func(t *testing.T) {
		st := newTestStore(t)
		m := &RefreshTokenManager{Store: st, RefreshTTL: time.Hour}
		opaque, familyID := seedRefresh(t, st, m)

		next, _, err := m.Redeem(ctx, opaque, time.Now())
		require.NoError(t, err)

		require.NoError(t, m.RevokeFamilyOf(ctx, next))

		revoked, err := st.RefreshTokens().RevokeFamily(ctx, familyID)
		require.NoError(t, err)
		require.Zero(t, revoked) // nothing left to revoke

		_, _, err = m.Redeem(ctx, next, time.Now())
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}
