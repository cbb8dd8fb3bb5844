// Package store implements the domain repositories on database/sql. The
// postgres and sqlite subpackages open the database, run migrations and
// provide the Dialect that papers over placeholder syntax and constraint
// error detection; every query here is written once with '?' placeholders.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamhub/internal/domain"
)

// Dialect captures what differs between the supported drivers.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	IsUniqueViolation(err error) bool
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a querier to a dialect and rewrites placeholders on the way in.
type conn struct {
	q querier
	d Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, rebind(c.d, query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, rebind(c.d, query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, rebind(c.d, query), args...)
}

func rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inList renders "?, ?, ?" for n arguments.
func inList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// withTx runs fn inside a transaction on db, committing when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, d Dialect, fn func(c conn) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(conn{q: tx, d: d}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// requireRow turns a zero-row conditional update into ErrConflict.
func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrConflict)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func now() time.Time {
	return time.Now().UTC()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Repositories bundles one implementation of every domain repository.
type Repositories struct {
	Users         *UserRepo
	Roles         *RoleRepo
	Friends       *FriendRepo
	Teams         *TeamRepo
	Invites       *TeamInviteRepo
	Chat          *ChatRepo
	Notifications *NotificationRepo
	Calendar      *CalendarRepo
	LLMKeys       *LLMKeyRepo
}

func New(db *sql.DB, d Dialect) *Repositories {
	return &Repositories{
		Users:         NewUserRepo(db, d),
		Roles:         NewRoleRepo(db, d),
		Friends:       NewFriendRepo(db, d),
		Teams:         NewTeamRepo(db, d),
		Invites:       NewTeamInviteRepo(db, d),
		Chat:          NewChatRepo(db, d),
		Notifications: NewNotificationRepo(db, d),
		Calendar:      NewCalendarRepo(db, d),
		LLMKeys:       NewLLMKeyRepo(db, d),
	}
}
