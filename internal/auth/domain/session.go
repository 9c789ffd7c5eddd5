package domain

import "time"

// Session models a signed-in authentication session. Logout flips SignedIn
// off without touching the refresh token families minted under the session.
type Session struct {
	ID        string
	UserID    string
	Scheme    string // authentication scheme that established the session
	SignedIn  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
