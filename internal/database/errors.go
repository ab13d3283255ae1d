package database

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrTokenNotFound = errors.New("refresh token not found")
)
