package auth

import "errors"

var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnexpectedSigning   = errors.New("unexpected token signing method")
)
