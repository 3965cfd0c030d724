package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingFields      = errors.New("email and name are required")
	ErrAccountDisabled    = errors.New("account has been deactivated")
	ErrNameRequired       = errors.New("name is required")
	ErrPasswordFields     = errors.New("current, new and confirmation passwords are required")
	ErrPasswordMismatch   = errors.New("new password and confirmation do not match")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

const minPasswordLength = 6

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service registers and authenticates users against the users table.
type Service struct {
	db     *sql.DB
	issuer *Issuer
}

func NewService(db *sql.DB, issuer *Issuer) *Service {
	return &Service{db: db, issuer: issuer}
}

func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, ErrMissingFields
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	return store.CreateUser(ctx, s.db, email, name, hash, models.RoleCustomer)
}

// Login checks the credentials and returns the user with a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := store.GetUserByEmail(ctx, s.db, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrAccountDisabled
	}

	token, _, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return store.GetUser(ctx, s.db, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, p models.Profile) (*models.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrNameRequired
	}
	return store.UpdateUserProfile(ctx, s.db, userID, p)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return ErrPasswordFields
	}
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}
	if next != confirm {
		return ErrPasswordMismatch
	}

	user, err := store.GetUser(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return store.UpdatePasswordHash(ctx, s.db, userID, hash)
}
