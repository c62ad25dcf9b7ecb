package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/auth"
	"github.com/tech-arch1tect/edgeguard/testutils"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := testutils.SetupTestDB(t, Models()...)
	return NewStore(db, testutils.GetTestConfig(), nil)
}

func createAlice(t *testing.T, store *Store) *auth.Principal {
	t.Helper()
	principal, err := store.Create(context.Background(), auth.NewPrincipal{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: testutils.TestPasswords.Valid,
	})
	require.NoError(t, err)
	return principal
}

func TestStore_Create(t *testing.T) {
	store := newTestStore(t)

	principal := createAlice(t, store)

	assert.NotEqual(t, uuid.Nil, principal.UserID)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, "alice@example.com", principal.Email)
	assert.Equal(t, []string{"ROLE_USER"}, principal.Roles)

	var user User
	require.NoError(t, store.db.First(&user, "id = ?", principal.UserID).Error)
	assert.NotEqual(t, testutils.TestPasswords.Valid, user.PasswordHash)
	assert.True(t, user.Enabled)
}

func TestStore_Create_Duplicates(t *testing.T) {
	store := newTestStore(t)
	createAlice(t, store)

	tests := []struct {
		name    string
		input   auth.NewPrincipal
		message string
	}{
		{
			name:    "duplicate username",
			input:   auth.NewPrincipal{Username: "alice", Email: "other@example.com", Password: testutils.TestPasswords.Valid},
			message: "Username is already taken",
		},
		{
			name:    "duplicate email ignores case",
			input:   auth.NewPrincipal{Username: "alice2", Email: "ALICE@example.com", Password: testutils.TestPasswords.Valid},
			message: "Email is already in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := store.Create(context.Background(), tt.input)

			assert.Nil(t, principal)
			assert.ErrorIs(t, err, auth.ErrDuplicatePrincipal)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestStore_Create_SecondUserReusesRole(t *testing.T) {
	store := newTestStore(t)
	createAlice(t, store)

	_, err := store.Create(context.Background(), auth.NewPrincipal{
		Username: "bob",
		Email:    "bob@example.com",
		Password: testutils.TestPasswords.Valid,
	})
	require.NoError(t, err)

	var roles int64
	require.NoError(t, store.db.Model(&Role{}).Count(&roles).Error)
	assert.Equal(t, int64(1), roles)
}

func TestStore_Authenticate(t *testing.T) {
	store := newTestStore(t)
	created := createAlice(t, store)
	ctx := context.Background()

	t.Run("by username", func(t *testing.T) {
		principal, err := store.Authenticate(ctx, "alice", testutils.TestPasswords.Valid)
		require.NoError(t, err)
		assert.Equal(t, created.UserID, principal.UserID)
		assert.Equal(t, []string{"ROLE_USER"}, principal.Roles)
	})

	t.Run("by email", func(t *testing.T) {
		principal, err := store.Authenticate(ctx, "ALICE@example.com", testutils.TestPasswords.Valid)
		require.NoError(t, err)
		assert.Equal(t, created.UserID, principal.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := store.Authenticate(ctx, "alice", "Wrong1234")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.Authenticate(ctx, "nobody", testutils.TestPasswords.Valid)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("disabled user", func(t *testing.T) {
		require.NoError(t, store.SetEnabled(ctx, created.UserID, false))
		defer func() { require.NoError(t, store.SetEnabled(ctx, created.UserID, true)) }()

		_, err := store.Authenticate(ctx, "alice", testutils.TestPasswords.Valid)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestStore_Find(t *testing.T) {
	store := newTestStore(t)
	created := createAlice(t, store)

	principal, err := store.Find(context.Background(), created.UserID)
	require.NoError(t, err)
	assert.Equal(t, created, principal)

	_, err = store.Find(context.Background(), uuid.New())
	assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
}

func TestStore_ValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		config   config.AuthConfig
		errMsg   string
	}{
		{
			name:     "valid password",
			password: testutils.TestPasswords.Valid,
			config:   config.AuthConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true},
		},
		{
			name:     "password too short",
			password: testutils.TestPasswords.TooShort,
			config:   config.AuthConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true},
			errMsg:   "Password must be at least 8 characters",
		},
		{
			name:     "missing uppercase",
			password: testutils.TestPasswords.NoUpper,
			config:   config.AuthConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true},
			errMsg:   "Password must contain at least one uppercase letter",
		},
		{
			name:     "missing lowercase",
			password: testutils.TestPasswords.NoLower,
			config:   config.AuthConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true},
			errMsg:   "Password must contain at least one lowercase letter",
		},
		{
			name:     "missing number",
			password: testutils.TestPasswords.NoNumber,
			config:   config.AuthConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true},
			errMsg:   "Password must contain at least one number",
		},
		{
			name:     "special character required",
			password: testutils.TestPasswords.Valid,
			config:   config.AuthConfig{MinLength: 8, RequireSpecial: true},
			errMsg:   "Password must contain at least one special character",
		},
		{
			name:     "special character present",
			password: testutils.TestPasswords.WithSpecial,
			config:   config.AuthConfig{MinLength: 8, RequireSpecial: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(nil, &config.Config{Auth: tt.config}, nil)

			err := store.ValidatePassword(tt.password)

			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, auth.ErrWeakPassword)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestStore_Create_WeakPassword(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(context.Background(), auth.NewPrincipal{
		Username: "alice",
		Email:    "alice@example.com",
		Password: testutils.TestPasswords.TooShort,
	})

	assert.ErrorIs(t, err, auth.ErrWeakPassword)
}
