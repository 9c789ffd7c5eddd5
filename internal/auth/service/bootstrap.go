package service

import (
	"context"
	"log/slog"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/cryptox"
	"github.com/signetauth/signet/pkg/idx"
	"github.com/signetauth/signet/pkg/slogx"
)

// SeedUser is the account created on first run. Operators configure it in
// the environment so a fresh deployment can be signed into without touching
// the database by hand.
type SeedUser struct {
	Username      string
	PreferredName string
	Password      string
	Role          string
	PhoneNumber   string
}

// BootstrapService provisions an empty store at startup.
type BootstrapService struct {
	Store store.Store
}

// EnsureSeedUser creates the seed account when the user table is empty and
// does nothing otherwise, so restarting with the same configuration is safe.
// Returns whether the account was created.
func (s *BootstrapService) EnsureSeedUser(
	ctx context.Context,
	seed SeedUser,
) (bool, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	passHash, err := cryptox.HashPassword(seed.Password)
	if err != nil {
		return false, err
	}

	u := domain.User{
		ID:            idx.New().String(),
		Username:      seed.Username,
		PreferredName: seed.PreferredName,
		PasswordHash:  passHash,
		Role:          seed.Role,
		PhoneNumber:   seed.PhoneNumber,
		SecurityStamp: idx.New().String(),
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return false, err
	}

	l.Info("seed user created on empty store",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return true, nil
}
