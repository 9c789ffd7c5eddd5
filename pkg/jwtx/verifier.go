package jwtx

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and returns the claims if it is legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrAudience   = errors.New("jwtx: audience mismatch")
	ErrExpired    = errors.New("jwtx: token expired")
)

// KeySetVerifier validates JWTs against the public keys in a KeySet,
// restricted to a fixed set of signing algorithms.
type KeySetVerifier struct {
	keys   *KeySet
	issuer string
	aud    []string
	algs   []string
	leeway time.Duration
}

// NewVerifier creates a verifier for the given KeySet. The algs list pins
// which signing methods are acceptable; tokens using anything else are
// rejected before signature checking.
func NewVerifier(keys *KeySet, issuer string, aud []string, algs ...string) *KeySetVerifier {
	return &KeySetVerifier{
		keys:   keys,
		issuer: issuer,
		aud:    aud,
		algs:   algs,
		leeway: 30 * time.Second,
	}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *KeySetVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods(v.algs),
		jwt.WithLeeway(v.leeway),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}

		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		return pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}
	if len(v.aud) > 0 && !hasAnyAudience(claims.Audience, v.aud) {
		return Claims{}, ErrAudience
	}

	return *claims, nil
}

func hasAnyAudience(have jwt.ClaimStrings, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
