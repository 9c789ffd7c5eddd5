package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/signetauth/signet/pkg/jwtx"
)

func newManager(t *testing.T, alg string) *jwtx.KeyManager {
	t.Helper()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: alg,
		Issuer:    "test-issuer",
		RSABits:   2048, // smaller keys keep the RS256 tests quick
		NumKeys:   2,
	})
	require.NoError(t, err)
	return km
}

func signClaims(t *testing.T, km *jwtx.KeyManager, claims jwt.MapClaims) string {
	t.Helper()

	signer := km.GetSigner()
	require.NotNil(t, signer)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

func TestSignAndVerify(t *testing.T) {
	for _, alg := range []string{jwtx.AlgorithmEdDSA, jwtx.AlgorithmRS256} {
		t.Run(alg, func(t *testing.T) {
			km := newManager(t, alg)
			require.Equal(t, alg, km.Algorithm())
			require.Equal(t, 2, km.NumSigners())

			now := time.Now()
			token := signClaims(t, km, jwt.MapClaims{
				"iss":   "test-issuer",
				"sub":   "user-1",
				"iat":   now.Unix(),
				"exp":   now.Add(time.Minute).Unix(),
				"sid":   "session-1",
				"scope": "openid profile",
			})

			claims, err := km.Verifier.Verify(token)
			require.NoError(t, err)
			require.Equal(t, "user-1", claims.Subject)
			require.Equal(t, "session-1", claims.SID)
			require.True(t, claims.HasScope("openid"))
			require.True(t, claims.HasScope("profile"))
			require.False(t, claims.HasScope("email"))
		})
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	km := newManager(t, jwtx.AlgorithmEdDSA)

	// Expired well past the verifier's clock-skew leeway
	past := time.Now().Add(-time.Hour)
	token := signClaims(t, km, jwt.MapClaims{
		"iss": "test-issuer",
		"sub": "user-1",
		"iat": past.Unix(),
		"exp": past.Add(time.Minute).Unix(),
	})

	_, err := km.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	km := newManager(t, jwtx.AlgorithmEdDSA)

	now := time.Now()
	token := signClaims(t, km, jwt.MapClaims{
		"iss": "someone-else",
		"sub": "user-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	})

	_, err := km.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	// Token signed by one instance must not verify against another: each
	// manager generates its own ephemeral keys with fresh kids.
	km := newManager(t, jwtx.AlgorithmEdDSA)
	other := newManager(t, jwtx.AlgorithmEdDSA)

	now := time.Now()
	token := signClaims(t, other, jwt.MapClaims{
		"iss": "test-issuer",
		"sub": "user-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	})

	_, err := km.Verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	km := newManager(t, jwtx.AlgorithmEdDSA)

	for _, tok := range []string{"", "nonsense", "a.b.c"} {
		_, err := km.Verifier.Verify(tok)
		require.Error(t, err)
	}
}

func TestAudienceValidation(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "test-issuer",
		Audience:  []string{"api"},
		NumKeys:   1,
	})
	require.NoError(t, err)

	now := time.Now()

	token := signClaims(t, km, jwt.MapClaims{
		"iss": "test-issuer",
		"sub": "user-1",
		"aud": "api",
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	})
	_, err = km.Verifier.Verify(token)
	require.NoError(t, err)

	token = signClaims(t, km, jwt.MapClaims{
		"iss": "test-issuer",
		"sub": "user-1",
		"aud": "somewhere-else",
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	})
	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrAudience)
}

func TestPublicJWKS(t *testing.T) {
	km := newManager(t, jwtx.AlgorithmEdDSA)

	jwks := km.KeySet.PublicJWKS()
	require.Len(t, jwks.Keys, 2)
	require.True(t, km.KeySet.IsReady())

	for _, jwk := range jwks.Keys {
		require.Equal(t, "OKP", jwk.Kty)
		require.Equal(t, "Ed25519", jwk.Crv)
		require.Equal(t, "sig", jwk.Use)
		require.NotEmpty(t, jwk.Kid)
		require.NotEmpty(t, jwk.X)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: "HS256",
		Issuer:    "test-issuer",
	})
	require.Error(t, err)
}
