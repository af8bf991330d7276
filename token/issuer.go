// Package token mints the credential pair used by the session core: a signed
// short-lived access token and a persisted long-lived refresh token. The
// issuer is transport-agnostic; setting cookies on a response is the caller's
// responsibility.
package token

import (
	"context"

	"github.com/pkg/errors"

	"github.com/leadcrm/go-crm-auth/token/jwt"
	"github.com/leadcrm/go-crm-auth/token/refresh"
	"github.com/leadcrm/go-crm-auth/users"
)

// Pair is the result of a successful issuance.
type Pair struct {
	AccessToken  string
	RefreshToken *refresh.StoredRefreshToken
}

// Issuer creates access/refresh token pairs
type Issuer struct {
	jwtCreator    *jwt.Creator
	refreshTokens *refresh.Manager
}

func NewIssuer(jwtCreator *jwt.Creator, refreshTokens *refresh.Manager) *Issuer {
	return &Issuer{
		jwtCreator:    jwtCreator,
		refreshTokens: refreshTokens,
	}
}

// IssuePair mints a signed access token and persists a new refresh token
// record for the user. IP and user agent are recorded on the refresh token
// for audit only.
func (i *Issuer) IssuePair(ctx context.Context, user *users.User, ip, userAgent string) (*Pair, error) {
	accessToken, err := i.jwtCreator.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.IssuePair] CreateAccessToken")
	}

	refreshToken, err := i.refreshTokens.Create(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.IssuePair] refreshTokens.Create")
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Verify checks a raw access token and returns the identity it encodes.
func (i *Issuer) Verify(rawAccessToken string) (*jwt.Identity, error) {
	return i.jwtCreator.VerifyAccessToken(rawAccessToken)
}
