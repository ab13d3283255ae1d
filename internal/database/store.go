package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"pharmachat/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	token      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the sqlite-backed account and refresh-token store. Chat
// messages are deliberately not persisted; only accounts and tokens
// survive a restart.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the sqlite database at path and
// bootstraps the schema.
func NewStore(path string, maxConns int, connLifetime time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(connLifetime)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateUser inserts a new account. Returns ErrUsernameTaken when the
// username is already registered.
func (s *Store) CreateUser(ctx context.Context, account *types.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, name, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Username, account.Name, account.PasswordHash, string(account.Role))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername loads an account for credential checks.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*types.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, name, password_hash, role FROM users WHERE username = ?`, username)

	var account types.Account
	var role string
	err := row.Scan(&account.ID, &account.Username, &account.Name, &account.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	account.Role = types.Role(role)
	return &account, nil
}

// SaveRefreshToken stores the current refresh token for a user,
// replacing any previous one. A user holds at most one valid refresh
// token at a time.
func (s *Store) SaveRefreshToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET token = excluded.token, updated_at = CURRENT_TIMESTAMP`,
		userID, token)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns the stored refresh token for a user.
func (s *Store) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT token FROM refresh_tokens WHERE user_id = ?`, userID)

	var token string
	err := row.Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load refresh token: %w", err)
	}
	return token, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
