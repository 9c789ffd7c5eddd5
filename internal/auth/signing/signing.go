// Package signing turns principals into signed JWTs. It is the only place
// that knows how claim destinations map onto concrete token payloads.
package signing

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/pkg/jwtx"
)

// TokenIssuer signs access and identity tokens from a resolved principal.
type TokenIssuer struct {
	Keys        *jwtx.KeyManager
	Issuer      string
	Audience    []string
	AccessTTL   time.Duration
	IdentityTTL time.Duration
}

// IssueAccessToken signs the access token for the principal. Only claims
// whose destinations include the access token are embedded; granted scopes
// ride along as a space-delimited scope claim.
func (t *TokenIssuer) IssueAccessToken(p *domain.Principal, now time.Time) (string, error) {
	claims := t.baseClaims(p, now, t.accessTTL())
	if len(p.GrantedScopes) > 0 {
		claims["scope"] = strings.Join(p.GrantedScopes, " ")
	}
	for _, c := range p.Claims {
		if c.InAccessToken() {
			claims[c.Type] = c.Value
		}
	}
	return t.sign(claims)
}

// IssueIdentityToken signs the OpenID Connect identity token. The caller is
// responsible for only requesting one when openid was granted.
func (t *TokenIssuer) IssueIdentityToken(p *domain.Principal, now time.Time) (string, error) {
	claims := t.baseClaims(p, now, t.identityTTL())
	for _, c := range p.Claims {
		if c.InIdentityToken() {
			claims[c.Type] = c.Value
		}
	}
	return t.sign(claims)
}

func (t *TokenIssuer) baseClaims(
	p *domain.Principal,
	now time.Time,
	ttl time.Duration,
) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss": t.Issuer,
		"sub": p.Subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": jwtx.NewJTI(),
	}
	if len(t.Audience) > 0 {
		claims["aud"] = t.Audience
	}
	if p.SessionID != "" {
		claims["sid"] = p.SessionID
	}
	return claims
}

func (t *TokenIssuer) sign(claims jwt.MapClaims) (string, error) {
	signer := t.Keys.GetSigner()
	return signer.Sign(claims)
}

func (t *TokenIssuer) accessTTL() time.Duration {
	if t.AccessTTL > 0 {
		return t.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (t *TokenIssuer) identityTTL() time.Duration {
	if t.IdentityTTL > 0 {
		return t.IdentityTTL
	}
	return jwtx.DefaultIdentityTokenTTL
}
