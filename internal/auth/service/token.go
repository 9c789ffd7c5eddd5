package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/signetauth/signet/internal/auth/domain"
	"github.com/signetauth/signet/internal/auth/metrics"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/idx"
	"github.com/signetauth/signet/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrTokenNoLongerValid = errors.New("token_no_longer_valid")
)

// TokenIssuer is the signing boundary the service depends on. The concrete
// implementation lives in the signing package.
type TokenIssuer interface {
	IssueAccessToken(p *domain.Principal, now time.Time) (string, error)
	IssueIdentityToken(p *domain.Principal, now time.Time) (string, error)
}

// TokenService implements the token endpoint grants: resource owner password
// and refresh_token. It owns orchestration only; credential checking, scope
// negotiation, principal assembly and rotation live in their own
// collaborators.
type TokenService struct {
	Store       store.Store
	Credentials *CredentialValidator
	Scopes      *ScopeNegotiator
	Principals  *PrincipalBuilder
	Refresh     *RefreshTokenManager
	Signer      TokenIssuer
	AccessTTL   time.Duration
}

// ExchangePassword implements the OAuth2 password grant.
//
// The credential check, session creation and refresh token mint happen before
// any token is signed; nothing is handed out unless the whole exchange is
// durable.
func (s *TokenService) ExchangePassword(
	ctx context.Context,
	username, password string,
	requestedScopes []string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	u, err := s.Credentials.Validate(ctx, username, password, now)
	if err != nil {
		metrics.TokensIssued.WithLabelValues("password", "denied").Inc()
		return nil, err
	}

	granted := s.Scopes.Negotiate(requestedScopes)
	sessionID := idx.New().String()
	principal := s.Principals.Build(u, sessionID, granted)

	var refreshOpaque string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, domain.Session{
			ID:       sessionID,
			UserID:   u.ID,
			Scheme:   "password",
			SignedIn: true,
		}); err != nil {
			return err
		}

		if containsScope(granted, ScopeOfflineAccess) {
			refreshOpaque, _, err = s.Refresh.Mint(ctx, tx, u.ID, sessionID, granted, now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(principal, refreshOpaque, now)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues("password", "issued").Inc()
	l.Info("password grant issued",
		slog.String("user_id", u.ID),
		slog.String("session_id", sessionID),
		slog.String("scope", pair.Scope),
	)
	return pair, nil
}

// ExchangeRefreshToken implements the OAuth2 refresh_token grant.
//
// The presented token is consumed and replaced atomically, then the user is
// reloaded so the new tokens reflect current claims rather than a snapshot
// from the original sign-in. Scopes never widen beyond the stored grant.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	refreshOpaque string,
	requestedScopes []string, // Empty means reuse original scopes
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	newOpaque, rt, err := s.Refresh.Redeem(ctx, refreshOpaque, now)
	if err != nil {
		metrics.TokensIssued.WithLabelValues("refresh_token", "denied").Inc()
		return nil, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.invalidateRedeemed(ctx, rt)
		}
		return nil, err
	}
	if u.Disabled || u.IsLockedOut(now) {
		return nil, s.invalidateRedeemed(ctx, rt)
	}

	// Narrowing is allowed, widening is not: the stored grant is the ceiling.
	granted := rt.Scopes
	if len(requestedScopes) > 0 {
		granted = intersectScopes(requestedScopes, rt.Scopes)
	}

	principal := s.Principals.Build(u, rt.SessionID, granted)

	pair, err := s.issuePair(principal, newOpaque, now)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues("refresh_token", "issued").Inc()
	l.Info("refresh grant issued",
		slog.String("user_id", u.ID),
		slog.String("session_id", rt.SessionID),
	)
	return pair, nil
}

// invalidateRedeemed revokes the family of a token redeemed for a user who
// can no longer sign in. The redemption already committed the replacement,
// and that replacement must not stay redeemable for an account that just
// failed the validity check.
func (s *TokenService) invalidateRedeemed(
	ctx context.Context,
	rt domain.RefreshToken,
) error {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.RefreshTokens().RevokeFamily(ctx, rt.FamilyID); err != nil {
		return err
	}

	l.Info("refresh family revoked, user no longer valid",
		slog.String("user_id", rt.UserID),
		slog.String("family_id", rt.FamilyID),
	)
	return ErrTokenNoLongerValid
}

func (s *TokenService) issuePair(
	principal *domain.Principal,
	refreshOpaque string,
	now time.Time,
) (*domain.TokenPair, error) {
	accessToken, err := s.Signer.IssueAccessToken(principal, now)
	if err != nil {
		return nil, err
	}

	pair := &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
		Scope:        strings.Join(principal.GrantedScopes, " "),
	}

	if principal.HasScope(ScopeOpenID) {
		pair.IdentityToken, err = s.Signer.IssueIdentityToken(principal, now)
		if err != nil {
			return nil, err
		}
	}

	return pair, nil
}
