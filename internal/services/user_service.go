// Package services – UserService
//
// This file implements the UserService, which owns the user lifecycle:
// registration (user + profile + settings created atomically), login,
// lookups, partial profile/settings updates, and the stats view. It
// validates input, delegates state changes to the identity store, and maps
// store sentinels to service-level errors so handlers can translate them
// to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alphatexting/go-backend/internal/domain"
	"github.com/alphatexting/go-backend/internal/store"
)

// UserService provides identity operations on top of the user store.
type UserService struct {
	// Users is the identity store backing all operations.
	Users *store.UserStore
}

// NewUserService constructs a UserService bound to the given store.
func NewUserService(users *store.UserStore) *UserService {
	return &UserService{Users: users}
}

// Register creates a new user with its default profile and settings.
// The three records exist atomically or not at all. An empty display name
// falls back to the username.
func (s *UserService) Register(ctx context.Context, username, displayName string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	u, err := s.Users.Register(username, strings.TrimSpace(displayName))
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

// Login refreshes the user's activity timestamp and returns the record.
func (s *UserService) Login(ctx context.Context, username string) (*domain.User, error) {
	if _, ok := s.Users.Get(username); !ok {
		return nil, ErrUserNotFound
	}
	s.Users.TouchActivity(username)
	u, _ := s.Users.Get(username)
	return u, nil
}

// Lookup returns the user record, or ErrUserNotFound.
func (s *UserService) Lookup(ctx context.Context, username string) (*domain.User, error) {
	u, ok := s.Users.Get(username)
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Profile returns the user's extended profile, materializing defaults on
// first access.
func (s *UserService) Profile(ctx context.Context, username string) (*domain.UserProfile, error) {
	p, err := s.Users.Profile(username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return p, nil
}

// Settings returns the user's settings, materializing defaults on first
// access.
func (s *UserService) Settings(ctx context.Context, username string) (*domain.UserSettings, error) {
	st, err := s.Users.Settings(username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return st, nil
}

// UpdateProfile applies a partial profile update; only provided fields
// change. The user's activity timestamp is refreshed.
func (s *UserService) UpdateProfile(ctx context.Context, username string, upd store.ProfileUpdate) error {
	if err := s.Users.UpdateProfile(username, upd); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UpdateSettings applies a partial settings update. Numeric fields outside
// their bounds are rejected individually: the previous value is retained
// and an ErrInvalidSetting-wrapping error names the fields, but every other
// provided field is still applied.
func (s *UserService) UpdateSettings(ctx context.Context, username string, upd store.SettingsUpdate) error {
	rejected, err := s.Users.UpdateSettings(username, upd)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSetting, strings.Join(rejected, ", "))
	}
	return nil
}

// Stats returns the user record with its live counters, for the stats view.
func (s *UserService) Stats(ctx context.Context, username string) (*domain.User, error) {
	return s.Lookup(ctx, username)
}
