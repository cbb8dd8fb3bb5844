package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"teamhub/internal/store"
)

// uniqueViolation is SQLSTATE unique_violation.
const uniqueViolation = "23505"

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Dialect is the store.Dialect for PostgreSQL.
type Dialect struct{}

var _ store.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Migrate runs idempotent DDL and seeds the built-in roles.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			name        VARCHAR(32) PRIMARY KEY,
			description TEXT        NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS role_permissions (
			role       VARCHAR(32) NOT NULL REFERENCES roles(name) ON DELETE CASCADE,
			permission VARCHAR(64) NOT NULL,
			PRIMARY KEY (role, permission)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id              BIGSERIAL    PRIMARY KEY,
			email           VARCHAR(255) NOT NULL UNIQUE,
			display_name    VARCHAR(100) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			role            VARCHAR(32)  NOT NULL DEFAULT 'user',
			deactivated_at  TIMESTAMPTZ,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_login_at   TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS friend_requests (
			id          BIGSERIAL   PRIMARY KEY,
			sender_id   BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status      VARCHAR(16) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (sender_id <> receiver_id)
		)`,
		// at most one active edge per unordered pair
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_friend_requests_active_pair
			ON friend_requests (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id))
			WHERE status IN ('pending', 'accepted', 'blocked')`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_sender ON friend_requests(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver_id)`,

		`CREATE TABLE IF NOT EXISTS teams (
			id         BIGSERIAL    PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			slug       VARCHAR(120) UNIQUE,
			owner_id   BIGINT       NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id   BIGINT      NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id   BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role      VARCHAR(16) NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (team_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id)`,
		`CREATE TABLE IF NOT EXISTS team_invites (
			id         BIGSERIAL   PRIMARY KEY,
			team_id    BIGINT      NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			inviter_id BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			invitee_id BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status     VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_team_invites_pending
			ON team_invites (team_id, invitee_id) WHERE status = 'pending'`,

		`CREATE TABLE IF NOT EXISTS chat_threads (
			id              BIGSERIAL    PRIMARY KEY,
			type            VARCHAR(8)   NOT NULL,
			team_id         BIGINT       REFERENCES teams(id) ON DELETE CASCADE,
			title           VARCHAR(200) NOT NULL DEFAULT '',
			dm_key          VARCHAR(64)  UNIQUE,
			ai_owner_id     BIGINT       UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			created_by      BIGINT       REFERENCES users(id) ON DELETE SET NULL,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_message_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS chat_participants (
			thread_id BIGINT      NOT NULL REFERENCES chat_threads(id) ON DELETE CASCADE,
			user_id   BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (thread_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_participants_user ON chat_participants(user_id)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id         BIGSERIAL   PRIMARY KEY,
			thread_id  BIGINT      NOT NULL REFERENCES chat_threads(id) ON DELETE CASCADE,
			sender_id  BIGINT      REFERENCES users(id) ON DELETE SET NULL,
			type       VARCHAR(8)  NOT NULL,
			content    TEXT        NOT NULL,
			metadata   TEXT        NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_thread ON chat_messages(thread_id, id DESC)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         BIGSERIAL    PRIMARY KEY,
			user_id    BIGINT       NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       VARCHAR(16)  NOT NULL,
			title      VARCHAR(200) NOT NULL,
			message    TEXT         NOT NULL,
			is_read    BOOLEAN      NOT NULL DEFAULT FALSE,
			action_url TEXT,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,

		`CREATE TABLE IF NOT EXISTS calendar_events (
			id          BIGSERIAL    PRIMARY KEY,
			owner_id    BIGINT       NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       VARCHAR(200) NOT NULL,
			description TEXT         NOT NULL DEFAULT '',
			starts_at   TIMESTAMPTZ  NOT NULL,
			ends_at     TIMESTAMPTZ  NOT NULL,
			status      VARCHAR(16)  NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS calendar_attendees (
			event_id BIGINT      NOT NULL REFERENCES calendar_events(id) ON DELETE CASCADE,
			user_id  BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rsvp     VARCHAR(16) NOT NULL,
			PRIMARY KEY (event_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_range ON calendar_events(starts_at, ends_at)`,

		`CREATE TABLE IF NOT EXISTS llm_keys (
			user_id       BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider      VARCHAR(32) NOT NULL,
			encrypted_key TEXT        NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
