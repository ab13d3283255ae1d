package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"pharmachat/pkg/types"
)

// Claims is the JWT payload for both access and refresh tokens. The
// subject is the user identity ID.
type Claims struct {
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Role     types.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) identity() *types.Identity {
	return &types.Identity{
		ID:       c.Subject,
		Username: c.Username,
		Name:     c.Name,
		Role:     c.Role,
	}
}

// Authenticator verifies access tokens for the relay. It implements
// interfaces.Authenticator.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an access-token verifier with the given
// signing secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses and validates an access token and returns the identity
// it encodes. Malformed, expired and tampered tokens all fail with
// ErrInvalidToken; callers treat every failure uniformly.
func (a *Authenticator) Verify(token string) (*types.Identity, error) {
	claims, err := parseClaims(token, a.secret)
	if err != nil {
		return nil, err
	}
	return claims.identity(), nil
}

func parseClaims(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigning
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" || !types.IsValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
