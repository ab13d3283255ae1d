package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pharmachat/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "store_test.db"), 2, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAccount(id, username string) *types.Account {
	return &types.Account{
		ID:           id,
		Username:     username,
		Name:         "Test Account",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhash",
		Role:         types.RoleUser,
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := testAccount("u1", "alice")
	account.Role = types.RolePharmacist
	if err := store.CreateUser(ctx, account); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	loaded, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if loaded.ID != account.ID || loaded.Name != account.Name {
		t.Errorf("Loaded account does not match: %+v", loaded)
	}
	if loaded.PasswordHash != account.PasswordHash {
		t.Error("Password hash must round-trip for credential checks")
	}
	if loaded.Role != types.RolePharmacist {
		t.Errorf("Expected role pharmacist, got %s", loaded.Role)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetUserByUsername(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateUser(ctx, testAccount("u1", "alice")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := store.CreateUser(ctx, testAccount("u2", "alice"))
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestRefreshTokenReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateUser(ctx, testAccount("u1", "alice")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.SaveRefreshToken(ctx, "u1", "token-one"); err != nil {
		t.Fatalf("SaveRefreshToken failed: %v", err)
	}
	if err := store.SaveRefreshToken(ctx, "u1", "token-two"); err != nil {
		t.Fatalf("SaveRefreshToken replace failed: %v", err)
	}

	token, err := store.GetRefreshToken(ctx, "u1")
	if err != nil {
		t.Fatalf("GetRefreshToken failed: %v", err)
	}
	if token != "token-two" {
		t.Errorf("Expected the latest token, got %q", token)
	}
}

func TestGetRefreshTokenNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRefreshToken(context.Background(), "nobody")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound, got %v", err)
	}
}
