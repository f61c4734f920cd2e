package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"casepulse/internal/entities"
)

// ErrInvalidCredentials is returned on any login failure so responses never
// reveal whether the username exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// StaffAccounts is the slice of the staff store auth needs.
// *repository.StaffRepository satisfies it.
type StaffAccounts interface {
	GetByUsername(ctx context.Context, username string) (*entities.StaffUser, error)
	Create(ctx context.Context, staff *entities.StaffUser) error
	UpdatePassword(ctx context.Context, staffID int, passwordHash string) error
}

type AuthUsecase struct {
	staff     StaffAccounts
	jwtSecret []byte
}

func NewAuthUsecase(staff StaffAccounts, secret string) *AuthUsecase {
	return &AuthUsecase{
		staff:     staff,
		jwtSecret: []byte(secret),
	}
}

// Register creates a staff account with the given role.
func (uc *AuthUsecase) Register(ctx context.Context, username, password, role string) error {
	existing, err := uc.staff.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if role != entities.RoleAdmin {
		role = entities.RoleManager
	}
	user := &entities.StaffUser{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	}
	return uc.staff.Create(ctx, user)
}

// Login verifies credentials and returns a signed 24h token.
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.staff.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil || !user.IsActive {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ResetPassword replaces a staff member's password.
func (uc *AuthUsecase) ResetPassword(ctx context.Context, staffID int, newPassword string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return uc.staff.UpdatePassword(ctx, staffID, string(hashed))
}

// EnsureAdmin creates the bootstrap admin account on first boot. A blank
// password skips the bootstrap entirely.
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		return nil
	}
	user, err := uc.staff.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &entities.StaffUser{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         entities.RoleAdmin,
		IsActive:     true,
	}
	return uc.staff.Create(ctx, admin)
}
