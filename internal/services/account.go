package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/badoux/checkmail"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// AccountService registers users and checks their credentials.
type AccountService struct {
	store  *storage.Store
	logger *applog.Logger
}

func NewAccountService(store *storage.Store, logger *applog.Logger) *AccountService {
	return &AccountService{store: store, logger: logger.WithComponent(applog.ComponentAuth)}
}

// Register creates a non-admin user. An email already in use yields
// core.ErrDuplicateEmail and leaves the existing account untouched.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || password == "" {
		return core.User{}, core.ErrInvalidInput
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return core.User{}, fmt.Errorf("%w: email: %v", core.ErrInvalidInput, err)
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	if err != nil {
		return core.User{}, err
	}

	var user core.User
	err = s.store.Do(ctx, func(c *storage.Conn) error {
		user, err = c.CreateUser(ctx, name, email, hash)
		return err
	})
	if errors.Is(err, storage.ErrUniqueViolation) {
		return core.User{}, core.ErrDuplicateEmail
	}
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, user.ID)
	return user, nil
}

// Login returns the user when email and password match. An unknown email
// and a wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)

	var user core.User
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		user, err = c.GetUserByEmail(ctx, email)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		auth.BurnPasswordCheck(password)
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return core.User{}, core.ErrInvalidCredentials
	}
	return user, nil
}

// SetAdmin grants or revokes the admin flag.
func (s *AccountService) SetAdmin(ctx context.Context, email string, admin bool) error {
	var found bool
	err := s.store.Do(ctx, func(c *storage.Conn) error {
		var err error
		found, err = c.SetUserAdmin(ctx, strings.TrimSpace(email), admin)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return core.ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "Admin flag changed", applog.FieldEmail, email, "admin", admin)
	return nil
}
