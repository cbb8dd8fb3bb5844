package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamhub/internal/domain"
)

type UserRepo struct {
	c conn
}

func NewUserRepo(db *sql.DB, d Dialect) *UserRepo {
	return &UserRepo{c: conn{q: db, d: d}}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, email, display_name, hashed_password, role, deactivated_at, created_at, last_login_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = "user"
	}
	u.CreatedAt = now()
	err := r.c.queryRow(ctx, `
		INSERT INTO users (email, display_name, hashed_password, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, u.Email, u.DisplayName, u.HashedPassword, u.Role, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if r.c.d.IsUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	rows, err := r.c.query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deactivated_at IS NULL
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) SetDeactivated(ctx context.Context, id int64, at *time.Time) error {
	res, err := r.c.exec(ctx, `UPDATE users SET deactivated_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("set deactivated: %w", err)
	}
	return requireFound(res, "set deactivated")
}

func (r *UserRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.c.exec(ctx, `UPDATE users SET last_login_at = ?, deactivated_at = NULL WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return requireFound(res, "touch login")
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.c.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireFound(res, "delete user")
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var deactivated, lastLogin sql.NullTime
	if err := s.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.HashedPassword,
		&u.Role,
		&deactivated,
		&u.CreatedAt,
		&lastLogin,
	); err != nil {
		return nil, err
	}
	u.DeactivatedAt = nullTime(deactivated)
	u.LastLoginAt = nullTime(lastLogin)
	return u, nil
}

// requireFound turns a zero-row update keyed by primary key into ErrNotFound.
func requireFound(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
