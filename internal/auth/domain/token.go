package domain

import "time"

// TokenPair represents what the token endpoint returns: the short-lived
// access token (JWT), an identity token when openid was granted, and the
// opaque refresh token when offline_access was granted.
type TokenPair struct {
	AccessToken   string        `json:"access_token"`
	IdentityToken string        `json:"id_token,omitempty"`
	RefreshToken  string        `json:"refresh_token,omitempty"`
	TokenType     string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn     time.Duration `json:"expires_in"`           // seconds until expiry
	Scope         string        `json:"scope,omitempty"`      // space-delimited
}

// RefreshToken models the stored refresh token record in the DB. Tokens
// belonging to the same authorization share a FamilyID; detecting reuse of a
// consumed member revokes the whole family.
type RefreshToken struct {
	ID         string
	UserID     string
	FamilyID   string
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	SessionID  string // Session ID (SID) that persists across token refreshes
	Scopes     []string
	ExpiresAt  time.Time
	Consumed   bool
	ConsumedAt *time.Time
	Revoked    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Usable reports whether the token can still be redeemed at the given time.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Consumed && !t.Revoked && now.Before(t.ExpiresAt)
}
