package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/store"
	"github.com/plumtrips/backend/pkg/cryptox"
	"github.com/plumtrips/backend/pkg/idx"
	"github.com/plumtrips/backend/pkg/slogx"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

const minPasswordLength = 8

// AccountService handles registration, credential checks and profile
// maintenance for user accounts.
type AccountService struct {
	Store store.Store
}

// Register creates a new account with a hashed password and the default
// user role.
func (s *AccountService) Register(
	ctx context.Context,
	email string,
	password string,
	fullName string,
	phone string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate inputs
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	// 2. Hash the password
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 3. Persist the user
	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Phone:        strings.TrimSpace(phone),
		Roles:        []string{"user"},
		CoTravellers: []domain.CoTraveller{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login checks an email/password pair. Unknown emails and wrong passwords
// both come back as ErrInvalidCredentials so callers cannot enumerate
// registered addresses.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to look up user", slog.Any("error", err))
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Warn("login rejected",
			slog.String("user_id", user.ID),
			slog.String("email", email),
		)
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Get fetches a user by ID.
func (s *AccountService) Get(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile replaces the user's display name, phone and extended
// profile fields.
func (s *AccountService) UpdateProfile(
	ctx context.Context,
	userID string,
	fullName string,
	phone string,
	profile domain.Profile,
) (domain.User, error) {
	err := s.Store.Users().UpdateProfile(ctx, userID, strings.TrimSpace(fullName), strings.TrimSpace(phone), profile)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.Get(ctx, userID)
}

// UpdateCoTravellers replaces the user's saved co-traveller list.
func (s *AccountService) UpdateCoTravellers(
	ctx context.Context,
	userID string,
	travellers []domain.CoTraveller,
) (domain.User, error) {
	if err := s.Store.Users().UpdateCoTravellers(ctx, userID, travellers); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.Get(ctx, userID)
}

// ChangePassword verifies the current password, stores a new hash and
// revokes every other session so stolen tokens stop working.
func (s *AccountService) ChangePassword(
	ctx context.Context,
	userID string,
	current string,
	next string,
) error {
	log := slogx.FromContext(ctx)

	// 1. Validate the replacement
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}

	// 2. Check the current password
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	// 3. Hash and store the new one
	hash, err := cryptox.HashPassword(next)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	// 4. Invalidate other sessions. The caller's own session is revoked
	// too; the handler re-issues it after a successful change.
	if err := s.Store.Sessions().RevokeAllUserSessions(ctx, userID, time.Now().UTC()); err != nil {
		log.Warn("failed to revoke sessions after password change",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	log.Info("password changed", slog.String("user_id", userID))
	return nil
}
