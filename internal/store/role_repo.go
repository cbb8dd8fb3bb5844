package store

import (
	"context"
	"database/sql"
	"fmt"

	"teamhub/internal/domain"
)

type RoleRepo struct {
	c conn
}

func NewRoleRepo(db *sql.DB, d Dialect) *RoleRepo {
	return &RoleRepo{c: conn{q: db, d: d}}
}

var _ domain.RoleRepository = (*RoleRepo)(nil)

func (r *RoleRepo) Get(ctx context.Context, name string) (*domain.Role, error) {
	role := &domain.Role{}
	err := r.c.queryRow(ctx, `SELECT name, description FROM roles WHERE name = ?`, name).
		Scan(&role.Name, &role.Description)
	if err != nil {
		return nil, notFound(err, "get role")
	}

	rows, err := r.c.query(ctx, `
		SELECT permission FROM role_permissions WHERE role = ? ORDER BY permission
	`, name)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		role.Permissions = append(role.Permissions, p)
	}
	return role, rows.Err()
}

func (r *RoleRepo) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.c.query(ctx, `SELECT name FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan role: %w", err)
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roles := make([]*domain.Role, 0, len(names))
	for _, n := range names {
		role, err := r.Get(ctx, n)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}
