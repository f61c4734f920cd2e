package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"casepulse/internal/entities"
)

// memStaffStore is an in-memory StaffAccounts for auth tests.
type memStaffStore struct {
	users  map[string]*entities.StaffUser
	nextID int
}

func newMemStaffStore() *memStaffStore {
	return &memStaffStore{users: map[string]*entities.StaffUser{}, nextID: 1}
}

func (m *memStaffStore) GetByUsername(_ context.Context, username string) (*entities.StaffUser, error) {
	return m.users[username], nil
}

func (m *memStaffStore) Create(_ context.Context, staff *entities.StaffUser) error {
	staff.ID = m.nextID
	m.nextID++
	m.users[staff.Username] = staff
	return nil
}

func (m *memStaffStore) UpdatePassword(_ context.Context, staffID int, passwordHash string) error {
	for _, u := range m.users {
		if u.ID == staffID {
			u.PasswordHash = passwordHash
		}
	}
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	store := newMemStaffStore()
	auth := NewAuthUsecase(store, "test-secret")
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, "paralegal", "hunter2hunter2", entities.RoleManager))

	user := store.users["paralegal"]
	require.NotNil(t, user)
	assert.Equal(t, entities.RoleManager, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))

	tokenString, err := auth.Login(ctx, "paralegal", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(1), claims["user_id"])
	assert.Equal(t, entities.RoleManager, claims["role"])
	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.Greater(t, int64(exp), time.Now().Add(23*time.Hour).Unix(), "token lives about a day")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	store := newMemStaffStore()
	auth := NewAuthUsecase(store, "test-secret")
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, "paralegal", "first-password", entities.RoleManager))
	err := auth.Register(ctx, "paralegal", "second-password", entities.RoleManager)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRegisterNormalizesRole(t *testing.T) {
	store := newMemStaffStore()
	auth := NewAuthUsecase(store, "test-secret")
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, "sneaky", "some-password", "superuser"))
	assert.Equal(t, entities.RoleManager, store.users["sneaky"].Role,
		"unknown roles collapse to manager")

	require.NoError(t, auth.Register(ctx, "boss", "some-password", entities.RoleAdmin))
	assert.Equal(t, entities.RoleAdmin, store.users["boss"].Role)
}

func TestLoginFailures(t *testing.T) {
	store := newMemStaffStore()
	auth := NewAuthUsecase(store, "test-secret")
	ctx := context.Background()
	require.NoError(t, auth.Register(ctx, "paralegal", "correct-password", entities.RoleManager))

	t.Run("wrong password", func(t *testing.T) {
		_, err := auth.Login(ctx, "paralegal", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := auth.Login(ctx, "nobody", "correct-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated user", func(t *testing.T) {
		store.users["paralegal"].IsActive = false
		_, err := auth.Login(ctx, "paralegal", "correct-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestResetPassword(t *testing.T) {
	store := newMemStaffStore()
	auth := NewAuthUsecase(store, "test-secret")
	ctx := context.Background()
	require.NoError(t, auth.Register(ctx, "paralegal", "old-password", entities.RoleManager))

	require.NoError(t, auth.ResetPassword(ctx, store.users["paralegal"].ID, "new-password"))

	_, err := auth.Login(ctx, "paralegal", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "paralegal", "new-password")
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("blank password skips bootstrap", func(t *testing.T) {
		store := newMemStaffStore()
		auth := NewAuthUsecase(store, "test-secret")
		require.NoError(t, auth.EnsureAdmin(ctx, "admin", ""))
		assert.Empty(t, store.users)
	})

	t.Run("creates the admin once", func(t *testing.T) {
		store := newMemStaffStore()
		auth := NewAuthUsecase(store, "test-secret")

		require.NoError(t, auth.EnsureAdmin(ctx, "admin", "bootstrap-password"))
		admin := store.users["admin"]
		require.NotNil(t, admin)
		assert.Equal(t, entities.RoleAdmin, admin.Role)
		assert.True(t, admin.IsActive)

		// Second boot leaves the existing account alone.
		require.NoError(t, auth.EnsureAdmin(ctx, "admin", "different-password"))
		assert.Same(t, admin, store.users["admin"])

		_, err := auth.Login(ctx, "admin", "bootstrap-password")
		assert.NoError(t, err)
	})
}
