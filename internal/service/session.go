package service

import (
	"context"
	"errors"
	"fmt"

	"teamhub/internal/access"
	"teamhub/internal/domain"
)

// SessionResolver turns an authenticated user id into an access.Session
// carrying the permissions of the user's role.
type SessionResolver struct {
	users domain.UserRepository
	roles domain.RoleRepository
}

func NewSessionResolver(users domain.UserRepository, roles domain.RoleRepository) *SessionResolver {
	return &SessionResolver{users: users, roles: roles}
}

// Resolve fails with Unauthorized when the user no longer exists or is
// deactivated.
func (r *SessionResolver) Resolve(ctx context.Context, userID int64) (access.Session, error) {
	u, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return access.Session{}, domain.Unauthorized("account no longer exists")
	}
	if err != nil {
		return access.Session{}, fmt.Errorf("resolve session: %w", err)
	}
	if !u.IsActive() {
		return access.Session{}, domain.Unauthorized("account is deactivated")
	}

	var perms []string
	role, err := r.roles.Get(ctx, u.Role)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// unknown role: identity only, no permissions
	case err != nil:
		return access.Session{}, fmt.Errorf("load role %s: %w", u.Role, err)
	default:
		perms = role.Permissions
	}
	return access.NewSession(u.ID, u.Role, perms)
}
