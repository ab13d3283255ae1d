package types

import "errors"

var (
	ErrInvalidUsername = errors.New("username must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrEmptyName       = errors.New("display name cannot be empty")
	ErrPasswordTooWeak = errors.New("password must be at least 8 characters")
)
