package store

import (
	"context"
	"database/sql"
	"fmt"

	"teamhub/internal/access"
)

type roleSeed struct {
	name        string
	description string
	permissions []string
}

var defaultRoles = []roleSeed{
	{
		name:        access.RoleAdmin,
		description: "Full access, including acting on other users' resources",
		permissions: access.AllPermissions,
	},
	{
		name:        access.RoleUser,
		description: "Regular member",
		permissions: []string{
			access.PermFriendsManage,
			access.PermTeamsCreate,
			access.PermChatUse,
			access.PermCalendarManage,
			access.PermNotificationsRead,
		},
	},
	{
		name:        access.RoleGuest,
		description: "Read-mostly access",
		permissions: []string{
			access.PermNotificationsRead,
			access.PermChatUse,
		},
	},
}

// SeedRoles inserts the built-in roles and their permissions. Existing rows
// are left alone so operators can extend a role without it being reset.
func SeedRoles(ctx context.Context, db *sql.DB, d Dialect) error {
	return withTx(ctx, db, d, func(c conn) error {
		for _, r := range defaultRoles {
			if _, err := c.exec(ctx, `
				INSERT INTO roles (name, description) VALUES (?, ?)
				ON CONFLICT (name) DO NOTHING
			`, r.name, r.description); err != nil {
				return fmt.Errorf("seed role %s: %w", r.name, err)
			}
			for _, p := range r.permissions {
				if _, err := c.exec(ctx, `
					INSERT INTO role_permissions (role, permission) VALUES (?, ?)
					ON CONFLICT (role, permission) DO NOTHING
				`, r.name, p); err != nil {
					return fmt.Errorf("seed permission %s/%s: %w", r.name, p, err)
				}
			}
		}
		return nil
	})
}
