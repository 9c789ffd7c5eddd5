package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

const selectRefreshTokenColumns = `
	id, user_id, family_id, token_hash, session_id, scopes, expires_at,
	consumed, consumed_at, revoked, created_at, updated_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, family_id, token_hash, session_id, scopes, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.FamilyID, t.TokenHash, t.SessionID,
		joinScopes(t.Scopes), t.ExpiresAt,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+selectRefreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

// ConsumeRefreshToken is the redemption compare-and-swap. The WHERE clause
// only matches a still-usable row, so of any number of concurrent redemptions
// exactly one sees RowsAffected == 1.
func (r *refreshTokensRepo) ConsumeRefreshToken(
	ctx context.Context,
	hash string,
	now time.Time,
) (domain.RefreshToken, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET consumed = 1, consumed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE token_hash = ? AND consumed = 0 AND revoked = 0 AND expires_at > ?`,
		now, hash, now,
	)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if affected == 0 {
		// Distinguish unknown token from an already-consumed one so the
		// caller can run reuse detection.
		if _, err := r.GetRefreshTokenByHash(ctx, hash); err != nil {
			return domain.RefreshToken{}, err
		}
		return domain.RefreshToken{}, store.ErrAlreadyConsumed
	}

	return r.GetRefreshTokenByHash(ctx, hash)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, updated_at = CURRENT_TIMESTAMP
		WHERE token_hash = ?`,
		hash,
	)
	return err
}

func (r *refreshTokensRepo) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, updated_at = CURRENT_TIMESTAMP
		WHERE family_id = ? AND revoked = 0`,
		familyID,
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND revoked = 0`,
		userID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now())
	return err
}

func scanRefreshToken(row scanner) (domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		scopes     string
		consumedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.FamilyID, &t.TokenHash, &t.SessionID, &scopes,
		&t.ExpiresAt, &t.Consumed, &consumedAt, &t.Revoked,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.Scopes = splitScopes(scopes)
	t.ConsumedAt = mapNullTimePtr(consumedAt)
	return t, nil
}
