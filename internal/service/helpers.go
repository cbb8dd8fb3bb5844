package service

import (
	"context"
	"errors"
	"fmt"

	"teamhub/internal/domain"
)

// UserSummary is the public view of another user.
type UserSummary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// defaultDisplayName stands in for users that cannot be loaded.
const defaultDisplayName = "Użytkownik"

func nameOf(u *domain.User) string {
	if u == nil || u.DisplayName == "" {
		return defaultDisplayName
	}
	return u.DisplayName
}

func summarize(u *domain.User) UserSummary {
	return UserSummary{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}

// activeUser loads a user that other users may interact with. Missing and
// deactivated accounts look the same to the caller.
func activeUser(ctx context.Context, users domain.UserRepository, id int64) (*domain.User, error) {
	u, err := users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	if !u.IsActive() {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

// asNotFound replaces a bare ErrNotFound from a repository with a typed
// error naming what was missing.
func asNotFound(err error, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		if _, typed := domain.AsError(err); !typed {
			return domain.NotFound(what + " not found")
		}
	}
	return err
}

// asConflict replaces a bare ErrConflict from a conditional update with a
// typed conflict carrying code.
func asConflict(err error, code, msg string) error {
	if errors.Is(err, domain.ErrConflict) {
		if _, typed := domain.AsError(err); !typed {
			return domain.Conflict(code, msg)
		}
	}
	return err
}
