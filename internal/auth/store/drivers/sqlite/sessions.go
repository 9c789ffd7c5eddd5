package sqlite

import (
	"context"
	"time"

	"github.com/signetauth/signet/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, scheme, signed_in)
		VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.Scheme, s.SignedIn,
	)
	return err
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, scheme, signed_in, created_at, updated_at
		FROM sessions WHERE id = ?`, id).Scan(
		&s.ID, &s.UserID, &s.Scheme, &s.SignedIn, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) SignOutSession(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET signed_in = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND signed_in = 1`,
		id,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// No row flipped: either already signed out or unknown session.
	if _, err := r.GetSession(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *sessionsRepo) DeleteStaleSessions(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE signed_in = 0 AND updated_at < ?`, cutoff)
	return err
}
