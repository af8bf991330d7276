// Package auth implements the session core of the CRM: credential
// verification, token pair issuance, refresh rotation-on-use, and revocation.
package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/leadcrm/go-crm-auth/token"
	"github.com/leadcrm/go-crm-auth/token/refresh"
	"github.com/leadcrm/go-crm-auth/users"
)

// dummyHash is a valid bcrypt hash compared against when the email does not
// match any user, so that the unknown-email and wrong-password paths take
// comparable time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service provides the authentication/session operations behind the HTTP
// surface.
type Service struct {
	userRepo      users.UserRepo
	issuer        *token.Issuer
	refreshTokens *refresh.Manager
	nowTime       func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the auth service with its required dependencies.
func NewService(userRepo users.UserRepo, issuer *token.Issuer, refreshTokens *refresh.Manager, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] user repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewService] token issuer is required")
	}
	if refreshTokens == nil {
		return nil, errors.New("[NewService] refresh token manager is required")
	}

	service := &Service{
		userRepo:      userRepo,
		issuer:        issuer,
		refreshTokens: refreshTokens,
		nowTime:       time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Login verifies the credentials and issues a fresh token pair. Unknown email
// and wrong password both fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*users.User, *token.Pair, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			users.CheckPasswordHash(password, dummyHash)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, errors.Wrap(err, "[Service.Login] userRepo.GetByEmail")
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.IssuePair(ctx, user, ip, userAgent)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login] IssuePair")
	}

	public := user.Public()
	return &public, pair, nil
}

// Refresh validates the incoming refresh token and rotates it: the old record
// is revoked and a brand new pair is issued. A refresh token is single-use;
// reuse after rotation fails because the record is already revoked, which is
// how token replay is detected.
//
// The revoke happens before the mint and is revoke-iff-active, so two racing
// refresh calls against the same record produce exactly one new chain. There
// is no partial-success path that leaves two valid tokens for one session: if
// minting fails after the revoke, the caller sees the failure and the old
// token is already dead.
func (s *Service) Refresh(ctx context.Context, incomingValue, ip, userAgent string) (*users.User, *token.Pair, error) {
	if incomingValue == "" {
		return nil, nil, ErrNoToken
	}

	stored, err := s.refreshTokens.FindValid(ctx, incomingValue)
	if err != nil {
		if isExpectedRefreshFailure(err) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, errors.Wrap(err, "[Service.Refresh] FindValid")
	}

	user, err := s.userRepo.GetByID(stored.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// Deleted-user race: the account vanished after the token
			// was issued.
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, errors.Wrap(err, "[Service.Refresh] userRepo.GetByID")
	}

	if err := s.refreshTokens.Revoke(ctx, stored.ID, refresh.ReasonRotated); err != nil {
		if isExpectedRefreshFailure(err) {
			// Lost the rotation race to a concurrent refresh.
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, errors.Wrap(err, "[Service.Refresh] Revoke")
	}

	pair, err := s.issuer.IssuePair(ctx, user, ip, userAgent)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Refresh] IssuePair")
	}

	public := user.Public()
	return &public, pair, nil
}

// Logout revokes the stored refresh token if one was presented. Unknown,
// expired, or already revoked tokens are a no-op: logout never fails because
// the session was already dead.
func (s *Service) Logout(ctx context.Context, refreshValue string) error {
	if refreshValue == "" {
		return nil
	}

	stored, err := s.refreshTokens.FindValid(ctx, refreshValue)
	if err != nil {
		if isExpectedRefreshFailure(err) {
			return nil
		}
		return errors.Wrap(err, "[Service.Logout] FindValid")
	}

	if err := s.refreshTokens.Revoke(ctx, stored.ID, refresh.ReasonLogout); err != nil {
		if isExpectedRefreshFailure(err) {
			return nil
		}
		return errors.Wrap(err, "[Service.Logout] Revoke")
	}
	return nil
}

// CurrentUser resolves the authenticated user's public record.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*users.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Service.CurrentUser] userRepo.GetByID")
	}
	public := user.Public()
	return &public, nil
}

// isExpectedRefreshFailure reports whether the error is one of the normal
// "this token is no longer usable" outcomes rather than a store fault.
func isExpectedRefreshFailure(err error) bool {
	return errors.Is(err, refresh.ErrNotFound) ||
		errors.Is(err, refresh.ErrRevoked) ||
		errors.Is(err, refresh.ErrExpired) ||
		errors.Is(err, refresh.ErrAlreadyRevoked)
}
