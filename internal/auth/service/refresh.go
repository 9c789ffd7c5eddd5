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

// DefaultReuseLeeway is how long after consumption a token may be presented
// again without tripping reuse detection. Zero means strict single use.
const DefaultReuseLeeway = 0 * time.Second

// RefreshTokenManager mints opaque refresh tokens and redeems them with
// single-use rotation. Tokens minted for the same authorization share a
// family id; presenting a consumed token outside the reuse leeway revokes
// the entire family before the caller sees an error.
type RefreshTokenManager struct {
	Store       store.Store
	RefreshTTL  time.Duration
	ReuseLeeway time.Duration
}

// Mint creates a brand-new refresh token opening a new family. The returned
// string is the opaque secret handed to the client; only its fingerprint is
// stored.
func (m *RefreshTokenManager) Mint(
	ctx context.Context,
	tx store.Tx,
	userID, sessionID string,
	scopes []string,
	now time.Time,
) (opaque string, rt domain.RefreshToken, err error) {
	return m.mint(ctx, tx, userID, idx.New().String(), sessionID, scopes, now)
}

func (m *RefreshTokenManager) mint(
	ctx context.Context,
	tx store.Tx,
	userID, familyID, sessionID string,
	scopes []string,
	now time.Time,
) (string, domain.RefreshToken, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		FamilyID:  familyID,
		TokenHash: cryptox.FingerprintToken(opaque),
		SessionID: sessionID,
		Scopes:    scopes,
		ExpiresAt: now.Add(m.RefreshTTL),
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return "", domain.RefreshToken{}, err
	}
	return opaque, rt, nil
}

// Redeem consumes the presented token and mints its replacement in one
// transaction. Concurrent redemptions of the same token produce exactly one
// winner; the losers observe the consumed row and, unless they are inside
// the reuse leeway, revoke the family and fail with ErrInvalidRefresh.
func (m *RefreshTokenManager) Redeem(
	ctx context.Context,
	opaque string,
	now time.Time,
) (newOpaque string, rt domain.RefreshToken, err error) {
	l := slogx.FromContext(ctx)
	fp := cryptox.FingerprintToken(opaque)

	err = m.Store.WithTx(ctx, func(tx store.Tx) error {
		consumed, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, fp, now)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidRefresh
		}
		if errors.Is(err, store.ErrAlreadyConsumed) {
			// The compare-and-swap missed: duplicate delivery inside the
			// reuse leeway is tolerated and still rotates, anything else is
			// reuse and kills the family.
			consumed, err = m.classifyUnusable(ctx, tx, fp, now)
		}
		if err != nil {
			return err
		}

		newOpaque, rt, err = m.mint(
			ctx, tx, consumed.UserID, consumed.FamilyID,
			consumed.SessionID, consumed.Scopes, now,
		)
		return err
	})
	var reuse *reuseDetected
	if errors.As(err, &reuse) {
		// The redemption transaction rolled back; the revocation must land
		// in its own transaction or the rollback undoes it too.
		return "", domain.RefreshToken{}, m.revokeOnReuse(ctx, reuse.token)
	}
	if err != nil {
		return "", domain.RefreshToken{}, err
	}

	l.Debug("refresh token rotated",
		slog.String("user_id", rt.UserID),
		slog.String("family_id", rt.FamilyID),
	)
	return newOpaque, rt, nil
}

// reuseDetected carries the offending token out of the redemption
// transaction. The transaction it was detected in is going to roll back, so
// the family revocation has to happen after it, not inside it.
type reuseDetected struct {
	token domain.RefreshToken
}

func (e *reuseDetected) Error() string { return "refresh token reuse detected" }

// classifyUnusable decides why the compare-and-swap missed. A consumed token
// still inside the reuse leeway window is returned so the caller can treat
// it as a benign duplicate delivery; a live token presented again outside
// the leeway is reuse and comes back as *reuseDetected.
func (m *RefreshTokenManager) classifyUnusable(
	ctx context.Context,
	tx store.Tx,
	fp string,
	now time.Time,
) (domain.RefreshToken, error) {
	existing, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrInvalidRefresh
		}
		return domain.RefreshToken{}, err
	}

	if existing.Revoked || now.After(existing.ExpiresAt) {
		return domain.RefreshToken{}, ErrInvalidRefresh
	}

	if existing.Consumed && existing.ConsumedAt != nil && m.ReuseLeeway > 0 &&
		now.Before(existing.ConsumedAt.Add(m.ReuseLeeway)) {
		return existing, nil
	}

	return domain.RefreshToken{}, &reuseDetected{token: existing}
}

// revokeOnReuse commits the family revocation in its own transaction and
// only then surfaces ErrInvalidRefresh, so the caller never sees the error
// while the family is still redeemable.
func (m *RefreshTokenManager) revokeOnReuse(
	ctx context.Context,
	rt domain.RefreshToken,
) error {
	l := slogx.FromContext(ctx)

	revoked, err := m.Store.RefreshTokens().RevokeFamily(ctx, rt.FamilyID)
	if err != nil {
		return err
	}

	metrics.RefreshReuseDetected.Inc()
	l.Warn("refresh token reuse detected, family revoked",
		slog.String("user_id", rt.UserID),
		slog.String("family_id", rt.FamilyID),
		slog.Int("tokens_revoked", revoked),
	)
	return ErrInvalidRefresh
}

// Revoke revokes a single refresh token by its opaque value. Unknown tokens
// are not an error, matching RFC 7009.
func (m *RefreshTokenManager) Revoke(ctx context.Context, opaque string) error {
	fp := cryptox.FingerprintToken(opaque)
	err := m.Store.RefreshTokens().RevokeRefreshToken(ctx, fp)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeFamilyOf revokes the whole family the opaque token belongs to.
// Unknown tokens are not an error.
func (m *RefreshTokenManager) RevokeFamilyOf(ctx context.Context, opaque string) error {
	fp := cryptox.FingerprintToken(opaque)
	rt, err := m.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = m.Store.RefreshTokens().RevokeFamily(ctx, rt.FamilyID)
	return err
}
