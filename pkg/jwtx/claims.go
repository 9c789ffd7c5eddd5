package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs for the token endpoint. Overridable per deployment.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultIdentityTokenTTL is the default lifetime for identity tokens.
	DefaultIdentityTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the fields we read back out of our own tokens. Issuance builds
// claim maps dynamically (the disclosed claim set varies per principal), so
// this struct only names the fields the service itself consumes.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session id minted at password sign-in and preserved across
	// refresh rotations.
	SID string `json:"sid,omitempty"`

	// Scope is the space-delimited granted scope list.
	Scope string `json:"scope,omitempty"`

	// Name is the subject's username claim, when disclosed.
	Name string `json:"name,omitempty"`

	// Role is the subject's role claim, when disclosed.
	Role string `json:"role,omitempty"`
}

// Scopes returns the granted scopes as a slice.
func (c *Claims) Scopes() []string {
	if c.Scope == "" {
		return nil
	}
	return strings.Fields(c.Scope)
}

// HasScope reports whether the token was granted the named scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
