package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/metrics"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/cryptox"
	"github.com/signetauth/signet/pkg/idx"
	"github.com/signetauth/signet/pkg/slogx"
)

const (
	// DefaultLockoutThreshold is how many consecutive failures lock the account.
	DefaultLockoutThreshold = 5

	// DefaultLockoutWindow is how long the account stays locked.
	DefaultLockoutWindow = 5 * time.Minute
)

// CredentialValidator checks a username/password pair against the user store
// and enforces account lockout. All failure modes that depend on the secret
// or the account state collapse into ErrInvalidCredentials so callers cannot
// probe which usernames exist; only an open lockout window is reported
// distinctly, and a lockout beats a correct password.
type CredentialValidator struct {
	Store            store.Store
	LockoutThreshold int
	LockoutWindow    time.Duration
}

func NewCredentialValidator(st store.Store) *CredentialValidator {
	return &CredentialValidator{
		Store:            st,
		LockoutThreshold: DefaultLockoutThreshold,
		LockoutWindow:    DefaultLockoutWindow,
	}
}

// Validate resolves the username and verifies the password, tracking failed
// attempts. On success the failure counter is reset.
func (v *CredentialValidator) Validate(
	ctx context.Context,
	username, password string,
	now time.Time,
) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := v.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so unknown usernames cost the same as
			// wrong passwords.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	// Lockout is checked before the password: a locked account rejects even
	// the correct secret until the window closes.
	if u.IsLockedOut(now) {
		l.Info("sign-in rejected, account locked",
			slog.String("user_id", u.ID),
			slog.Time("locked_until", *u.LockedUntil),
		)
		return domain.User{}, ErrAccountLocked
	}

	if u.Disabled {
		return domain.User{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		count, recErr := v.Store.Users().RecordFailedLogin(
			ctx, u.ID, v.LockoutThreshold, now.Add(v.LockoutWindow))
		if recErr != nil {
			l.Error("failed to record failed login", slog.Any("error", recErr))
		} else if count == v.LockoutThreshold {
			metrics.AccountsLocked.Inc()
			l.Warn("account locked after repeated failures",
				slog.String("user_id", u.ID),
				slog.Int("failed_logins", count),
			)
		}
		return domain.User{}, ErrInvalidCredentials
	}

	if u.FailedLogins > 0 || u.LockedUntil != nil {
		if err := v.Store.Users().ClearFailedLogins(ctx, u.ID); err != nil {
			l.Error("failed to clear login failures", slog.Any("error", err))
		}
	}

	return u, nil
}

// ChangePassword verifies the current password and replaces the hash. The
// security stamp rotates and every refresh token the user holds is revoked
// in the same transaction, so grants obtained under the old secret die with
// it. Access tokens already issued run out on their own TTL.
func (v *CredentialValidator) ChangePassword(
	ctx context.Context,
	userID, current, next string,
	now time.Time,
) error {
	l := slogx.FromContext(ctx)

	u, err := v.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if u.IsLockedOut(now) {
		return ErrAccountLocked
	}
	if u.Disabled {
		return ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(current, u.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}

	err = v.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash, idx.New().String()); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	l.Info("password changed, refresh tokens revoked",
		slog.String("user_id", userID),
	)
	return nil
}
