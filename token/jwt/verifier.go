package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/leadcrm/go-crm-auth/users"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// Identity is the verified content of an access token, attached to the
// request context by the session middleware.
type Identity struct {
	UserID string
	Role   users.RoleType
}

// VerifyAccessToken checks the signature and expiry of a raw access token and
// returns the identity it encodes. Tampered, expired, or otherwise malformed
// tokens all fail with ErrInvalidAccessToken.
func (c *Creator) VerifyAccessToken(rawToken string) (*Identity, error) {
	token, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAccessToken
		}
		return c.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrInvalidAccessToken
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || !users.RoleType(role).Valid() {
		return nil, ErrInvalidAccessToken
	}

	return &Identity{UserID: sub, Role: users.RoleType(role)}, nil
}
