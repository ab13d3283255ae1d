package interfaces

import (
	"context"

	"pharmachat/pkg/types"
)

// UserStore handles account and refresh-token persistence.
type UserStore interface {
	// CreateUser inserts a new account. Fails if the username is taken.
	CreateUser(ctx context.Context, account *types.Account) error

	// GetUserByUsername retrieves an account for credential checks.
	GetUserByUsername(ctx context.Context, username string) (*types.Account, error)

	// SaveRefreshToken stores the current refresh token for a user,
	// replacing any previous one.
	SaveRefreshToken(ctx context.Context, userID, token string) error

	// GetRefreshToken returns the stored refresh token for a user.
	GetRefreshToken(ctx context.Context, userID string) (string, error)

	// Close releases database resources.
	Close() error
}
