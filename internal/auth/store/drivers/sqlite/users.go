package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/signetauth/signet/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const selectUserColumns = `
	id, username, preferred_name, password_hash, role, phone_number,
	security_stamp, failed_logins, locked_until, disabled, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+selectUserColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+selectUserColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, preferred_name, password_hash, role, phone_number,
			security_stamp, disabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PreferredName, u.PasswordHash, u.Role,
		u.PhoneNumber, u.SecurityStamp, u.Disabled,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(
	ctx context.Context,
	userID, newHash, securityStamp string,
) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, security_stamp = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, securityStamp, userID,
	)
	return err
}

// RecordFailedLogin bumps failed_logins and opens the lockout window once the
// counter reaches the threshold. Done in a single statement so concurrent
// failures count correctly.
func (r *usersRepo) RecordFailedLogin(
	ctx context.Context,
	userID string,
	threshold int,
	lockedUntil time.Time,
) (int, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_logins = failed_logins + 1,
		    locked_until = CASE WHEN failed_logins + 1 >= ? THEN ? ELSE locked_until END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		threshold, lockedUntil, userID,
	)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.QueryRowContext(ctx,
		`SELECT failed_logins FROM users WHERE id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *usersRepo) ClearFailedLogins(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_logins = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID,
	)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u           domain.User
		lockedUntil sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PreferredName, &u.PasswordHash, &u.Role,
		&u.PhoneNumber, &u.SecurityStamp, &u.FailedLogins, &lockedUntil,
		&u.Disabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	return u, nil
}
