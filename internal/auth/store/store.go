package store

import (
	"context"
	"errors"
	"time"

	"github.com/signetauth/signet/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAlreadyConsumed is returned by ConsumeRefreshToken when the token
	// was already redeemed, revoked or expired at the time of the update.
	ErrAlreadyConsumed = errors.New("store: refresh token already consumed")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh rotation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password grant.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2), rotates the
	// security stamp and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash, securityStamp string) error

	// RecordFailedLogin increments failed_logins. When the counter reaches
	// threshold the lockout window is opened by setting locked_until.
	// Returns the updated failure count.
	RecordFailedLogin(ctx context.Context, userID string, threshold int, lockedUntil time.Time) (int, error)

	// ClearFailedLogins resets failed_logins and locked_until after a
	// successful sign-in.
	ClearFailedLogins(ctx context.Context, userID string) error

	// DeleteUser cascades to refresh_tokens and sessions (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its hashed value.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken marks the token consumed if and only if it is still
	// usable at the given time. The update is a compare-and-swap: concurrent
	// redemptions of the same token see exactly one winner, the rest get
	// ErrAlreadyConsumed.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeFamily revokes every token that shares the authorization family,
	// consumed or not. Returns the number of tokens revoked.
	RevokeFamily(ctx context.Context, familyID string) (int, error)

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g., password reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is optional housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Sessions interface {
	// CreateSession records a fresh signed-in session.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession returns a session by id.
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// SignOutSession flips signed_in=0 and returns the previous state.
	// Signing out an already signed-out session is not an error.
	SignOutSession(ctx context.Context, id string) (wasSignedIn bool, err error)

	// DeleteStaleSessions removes signed-out sessions older than the cutoff.
	DeleteStaleSessions(ctx context.Context, cutoff time.Time) error
}
