package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/signetauth/signet/internal/auth/signing"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/cryptox"
	"github.com/signetauth/signet/pkg/jwtx"
)

func newTestTokenService(t *testing.T, st store.Store) *TokenService {
	t.Helper()

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "test-issuer",
		NumKeys:   1,
	})
	require.NoError(t, err)

	return &TokenService{
		Store:       st,
		Credentials: NewCredentialValidator(st),
		Scopes:      NewScopeNegotiator(),
		Principals:  &PrincipalBuilder{},
		Refresh: &RefreshTokenManager{
			Store:      st,
			RefreshTTL: time.Hour,
		},
		Signer: &signing.TokenIssuer{
			Keys:      keyManager,
			Issuer:    "test-issuer",
			AccessTTL: time.Minute,
		},
		AccessTTL: time.Minute,
	}
}

// decodeClaims parses a JWT payload without verifying the signature. The
// tests sign with a key they just generated, so payload shape is what counts.
func decodeClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims
}

func TestExchangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("issues identity token when openid granted", func(t *testing.T) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		pair, err := svc.ExchangePassword(ctx, "alice", "pw",
			[]string{"openid", "profile", "offline_access"})
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.IdentityToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "openid profile offline_access", pair.Scope)
	})

	t.Run("no openid means no identity token", func(t *testing.T) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		pair, err := svc.ExchangePassword(ctx, "alice", "pw", []string{"profile"})
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.Empty(t, pair.IdentityToken)
	})

	t.Run("no offline_access means no refresh token", func(t *testing.T) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		pair, err := svc.ExchangePassword(ctx, "alice", "pw", []string{"openid"})
		require.NoError(t, err)
		require.Empty(t, pair.RefreshToken)
	})

	t.Run("claim placement follows destinations", func(t *testing.T) {
		st := newTestStore(t)
		u := createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		// profile granted, phone not: name appears in both tokens,
		// phone_number only in the access token.
		pair, err := svc.ExchangePassword(ctx, "alice", "pw",
			[]string{"openid", "profile"})
		require.NoError(t, err)

		access := decodeClaims(t, pair.AccessToken)
		identity := decodeClaims(t, pair.IdentityToken)

		require.Equal(t, u.ID, access["sub"])
		require.Equal(t, u.PreferredName, access["name"])
		require.Equal(t, u.PhoneNumber, access["phone_number"])
		require.Equal(t, u.Role, access["role"])

		require.Equal(t, u.ID, identity["sub"])
		require.Equal(t, u.PreferredName, identity["name"])
		require.NotContains(t, identity, "phone_number")
		require.NotContains(t, identity, "role")
	})

	t.Run("security stamp never appears in any token", func(t *testing.T) {
		st := newTestStore(t)
		u := createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		pair, err := svc.ExchangePassword(ctx, "alice", "pw", SupportedScopes())
		require.NoError(t, err)

		for _, tok := range []string{pair.AccessToken, pair.IdentityToken} {
			claims := decodeClaims(t, tok)
			require.NotContains(t, claims, "security_stamp")
			for _, v := range claims {
				require.NotEqual(t, u.SecurityStamp, v)
			}
		}
	})

	t.Run("bad password is invalid credentials", func(t *testing.T) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		_, err := svc.ExchangePassword(ctx, "alice", "wrong", nil)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("locked account rejects correct password", func(t *testing.T) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		for i := 0; i < svc.Credentials.LockoutThreshold; i++ {
			_, err := svc.ExchangePassword(ctx, "alice", "wrong", nil)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}

		_, err := svc.ExchangePassword(ctx, "alice", "pw", nil)
		require.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("password grant creates a signed-in session", func(t *testing.T) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		pair, err := svc.ExchangePassword(ctx, "alice", "pw", []string{"openid"})
		require.NoError(t, err)

		claims := decodeClaims(t, pair.AccessToken)
		sid, _ := claims["sid"].(string)
		require.NotEmpty(t, sid)

		session, err := st.Sessions().GetSession(ctx, sid)
		require.NoError(t, err)
		require.True(t, session.SignedIn)
	})
}

func TestExchangeRefreshToken(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (store.Store, *TokenService, string) {
		st := newTestStore(t)
		createTestUser(t, st, "alice", "pw")
		svc := newTestTokenService(t, st)

		pair, err := svc.ExchangePassword(ctx, "alice", "pw",
			[]string{"openid", "profile", "offline_access"})
		require.NoError(t, err)
		require.NotEmpty(t, pair.RefreshToken)
		return st, svc, pair.RefreshToken
	}

	t.Run("rotation returns a different usable token", func(t *testing.T) {
		_, svc, refresh := seed(t)

		next, err := svc.ExchangeRefreshToken(ctx, refresh, nil)
		require.NoError(t, err)
		require.NotEmpty(t, next.RefreshToken)
		require.NotEqual(t, refresh, next.RefreshToken)

		// The replacement works; the original is spent.
		_, err = svc.ExchangeRefreshToken(ctx, next.RefreshToken, nil)
		require.NoError(t, err)
	})

	t.Run("scopes can narrow but never widen", func(t *testing.T) {
		_, svc, refresh := seed(t)

		narrowed, err := svc.ExchangeRefreshToken(ctx, refresh, []string{"openid"})
		require.NoError(t, err)
		require.Equal(t, "openid", narrowed.Scope)

		// Try to widen from the narrowed grant.
		widened, err := svc.ExchangeRefreshToken(ctx, narrowed.RefreshToken,
			[]string{"openid", "email", "roles"})
		require.NoError(t, err)
		require.Equal(t, "openid", widened.Scope)
	})

	t.Run("session survives rotation", func(t *testing.T) {
		_, svc, refresh := seed(t)

		first, err := svc.ExchangeRefreshToken(ctx, refresh, nil)
		require.NoError(t, err)
		second, err := svc.ExchangeRefreshToken(ctx, first.RefreshToken, nil)
		require.NoError(t, err)

		sidFirst := decodeClaims(t, first.AccessToken)["sid"]
		sidSecond := decodeClaims(t, second.AccessToken)["sid"]
		require.Equal(t, sidFirst, sidSecond)
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		_, svc, _ := seed(t)

		_, err := svc.ExchangeRefreshToken(ctx, "not-a-token", nil)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("redeeming for a locked user kills the family", func(t *testing.T) {
		st, svc, refresh := seed(t)

		u, err := st.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		_, err = st.Users().RecordFailedLogin(ctx, u.ID, 1, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = svc.ExchangeRefreshToken(ctx, refresh, nil)
		require.ErrorIs(t, err, ErrTokenNoLongerValid)

		// Rotation minted a replacement before the validity check failed;
		// the revocation has to reach it too.
		rt, err := st.RefreshTokens().GetRefreshTokenByHash(ctx,
			cryptox.FingerprintToken(refresh))
		require.NoError(t, err)
		revoked, err := st.RefreshTokens().RevokeFamily(ctx, rt.FamilyID)
		require.NoError(t, err)
		require.Zero(t, revoked)

		// Unlocking the account does not resurrect the grant.
		require.NoError(t, st.Users().ClearFailedLogins(ctx, u.ID))
		_, err = svc.ExchangeRefreshToken(ctx, refresh, nil)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}
