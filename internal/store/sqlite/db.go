package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"teamhub/internal/store"
)

// Open opens a SQLite database. Foreign keys are enabled on every pooled
// connection through the DSN; the pool is limited to one connection, which
// also keeps ":memory:" databases shared.
func Open(path string) (*sql.DB, error) {
	dsn := path
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Dialect is the store.Dialect for SQLite.
type Dialect struct{}

var _ store.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Migrate creates the schema and seeds the built-in roles. Every statement
// is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			name        TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS role_permissions (
			role       TEXT NOT NULL REFERENCES roles(name) ON DELETE CASCADE,
			permission TEXT NOT NULL,
			PRIMARY KEY (role, permission)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id              INTEGER PRIMARY KEY,
			email           TEXT NOT NULL UNIQUE,
			display_name    TEXT NOT NULL,
			hashed_password TEXT NOT NULL,
			role            TEXT NOT NULL DEFAULT 'user',
			deactivated_at  DATETIME,
			created_at      DATETIME NOT NULL,
			last_login_at   DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id          INTEGER PRIMARY KEY,
			sender_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status      TEXT NOT NULL,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL,
			CHECK (sender_id <> receiver_id)
		)`,
		// at most one active edge per unordered pair
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_friend_requests_active_pair
			ON friend_requests (min(sender_id, receiver_id), max(sender_id, receiver_id))
			WHERE status IN ('pending', 'accepted', 'blocked')`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_sender ON friend_requests(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver_id)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id         INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			slug       TEXT UNIQUE,
			owner_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id   INTEGER NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role      TEXT NOT NULL,
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (team_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id)`,
		`CREATE TABLE IF NOT EXISTS team_invites (
			id         INTEGER PRIMARY KEY,
			team_id    INTEGER NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			inviter_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			invitee_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status     TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_team_invites_pending
			ON team_invites (team_id, invitee_id) WHERE status = 'pending'`,
		`CREATE TABLE IF NOT EXISTS chat_threads (
			id              INTEGER PRIMARY KEY,
			type            TEXT NOT NULL,
			team_id         INTEGER REFERENCES teams(id) ON DELETE CASCADE,
			title           TEXT NOT NULL DEFAULT '',
			dm_key          TEXT UNIQUE,
			ai_owner_id     INTEGER UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			created_by      INTEGER REFERENCES users(id) ON DELETE SET NULL,
			created_at      DATETIME NOT NULL,
			last_message_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS chat_participants (
			thread_id INTEGER NOT NULL REFERENCES chat_threads(id) ON DELETE CASCADE,
			user_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (thread_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_participants_user ON chat_participants(user_id)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id         INTEGER PRIMARY KEY,
			thread_id  INTEGER NOT NULL REFERENCES chat_threads(id) ON DELETE CASCADE,
			sender_id  INTEGER REFERENCES users(id) ON DELETE SET NULL,
			type       TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_thread ON chat_messages(thread_id, id)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			is_read    BOOLEAN NOT NULL DEFAULT FALSE,
			action_url TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,
		`CREATE TABLE IF NOT EXISTS calendar_events (
			id          INTEGER PRIMARY KEY,
			owner_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			starts_at   DATETIME NOT NULL,
			ends_at     DATETIME NOT NULL,
			status      TEXT NOT NULL,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calendar_attendees (
			event_id INTEGER NOT NULL REFERENCES calendar_events(id) ON DELETE CASCADE,
			user_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rsvp     TEXT NOT NULL,
			PRIMARY KEY (event_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS llm_keys (
			user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider      TEXT NOT NULL,
			encrypted_key TEXT NOT NULL,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL,
			PRIMARY KEY (user_id, provider)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return store.SeedRoles(ctx, db, Dialect{})
}
