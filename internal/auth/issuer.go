package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pharmachat/internal/database"
	"pharmachat/pkg/interfaces"
	"pharmachat/pkg/types"
)

// Issuer handles account login, registration and token issuance. Access
// tokens are short-lived; refresh tokens have no expiry and stay valid
// until replaced, checked against the stored copy on every refresh.
type Issuer struct {
	store         interfaces.UserStore
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
}

// NewIssuer creates a token issuer backed by the given account store.
func NewIssuer(store interfaces.UserStore, secret, refreshSecret string, accessTTL time.Duration) *Issuer {
	return &Issuer{
		store:         store,
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
	}
}

// Login checks the credentials and issues a fresh token pair. The new
// refresh token replaces any previously stored one.
func (i *Issuer) Login(ctx context.Context, username, password string) (access, refresh string, identity *types.Identity, err error) {
	account, err := i.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to load account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	identity = account.Identity()

	access, err = i.signAccess(identity)
	if err != nil {
		return "", "", nil, err
	}
	refresh, err = i.signRefresh(identity)
	if err != nil {
		return "", "", nil, err
	}

	if err := i.store.SaveRefreshToken(ctx, identity.ID, refresh); err != nil {
		return "", "", nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return access, refresh, identity, nil
}

// Refresh issues a new access token from a refresh token. The token
// must match the stored copy; an older, replaced refresh token is
// rejected even when its signature is valid.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := parseClaims(refreshToken, i.refreshSecret)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	stored, err := i.store.GetRefreshToken(ctx, claims.Subject)
	if err != nil || stored != refreshToken {
		return "", ErrInvalidRefreshToken
	}

	return i.signAccess(claims.identity())
}

// Register creates a new user account. Pharmacist accounts are not
// self-service; they are provisioned at deployment time.
func (i *Issuer) Register(ctx context.Context, username, password, name string) (*types.Identity, error) {
	if !types.IsValidUsername(username) {
		return nil, types.ErrInvalidUsername
	}
	if len(password) < 8 {
		return nil, types.ErrPasswordTooWeak
	}
	if name == "" {
		return nil, types.ErrEmptyName
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &types.Account{
		ID:           uuid.New().String(),
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		Role:         types.RoleUser,
	}
	if err := i.store.CreateUser(ctx, account); err != nil {
		return nil, err
	}

	return account.Identity(), nil
}

func (i *Issuer) signAccess(identity *types.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: identity.Username,
		Name:     identity.Name,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

func (i *Issuer) signRefresh(identity *types.Identity) (string, error) {
	claims := &Claims{
		Username: identity.Username,
		Name:     identity.Name,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.ID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

// HashPassword produces a bcrypt hash for account provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
