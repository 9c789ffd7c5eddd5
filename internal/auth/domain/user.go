package domain

import "time"

type User struct {
	ID            string
	Username      string
	PreferredName string
	PasswordHash  string // argon2 encoded
	Role          string
	PhoneNumber   string
	SecurityStamp string // rotated on credential change; never disclosed in tokens
	FailedLogins  int
	LockedUntil   *time.Time // nullable; account is locked while now < LockedUntil
	Disabled      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsLockedOut reports whether the account lockout window is still open.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
