package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamhub/internal/domain"
)

type ChatRepo struct {
	db *sql.DB
	c  conn
}

func NewChatRepo(db *sql.DB, d Dialect) *ChatRepo {
	return &ChatRepo{db: db, c: conn{q: db, d: d}}
}

var _ domain.ChatRepository = (*ChatRepo)(nil)

const threadColumns = `t.id, t.type, t.team_id, t.title, t.dm_key, t.ai_owner_id, t.created_by, t.created_at, t.last_message_at`

// participation holds for team threads through current team membership and
// for every other thread through chat_participants.
const participation = `(
	(t.type = 'team' AND EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.team_id AND m.user_id = ?))
	OR (t.type <> 'team' AND EXISTS (SELECT 1 FROM chat_participants p WHERE p.thread_id = t.id AND p.user_id = ?))
)`

func (r *ChatRepo) CreateThread(ctx context.Context, t *domain.ChatThread, participantIDs []int64) (*domain.ChatThread, bool, error) {
	var (
		out     *domain.ChatThread
		created bool
	)
	err := withTx(ctx, r.db, r.c.d, func(c conn) error {
		t.CreatedAt = now()
		err := c.queryRow(ctx, `
			INSERT INTO chat_threads (type, team_id, title, dm_key, ai_owner_id, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
			RETURNING id
		`, t.Type, t.TeamID, t.Title, t.DMKey, t.AIOwnerID, t.CreatedBy, t.CreatedAt).Scan(&t.ID)
		if errors.Is(err, sql.ErrNoRows) {
			existing, err := r.findExisting(ctx, c, t)
			if err != nil {
				return err
			}
			out = existing
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert thread: %w", err)
		}

		for _, uid := range participantIDs {
			if _, err := c.exec(ctx, `
				INSERT INTO chat_participants (thread_id, user_id, joined_at)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING
			`, t.ID, uid, t.CreatedAt); err != nil {
				return fmt.Errorf("insert participant %d: %w", uid, err)
			}
		}
		out, created = t, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *ChatRepo) findExisting(ctx context.Context, c conn, t *domain.ChatThread) (*domain.ChatThread, error) {
	var row *sql.Row
	switch {
	case t.DMKey != nil:
		row = c.queryRow(ctx, `SELECT `+threadColumns+` FROM chat_threads t WHERE t.dm_key = ?`, *t.DMKey)
	case t.AIOwnerID != nil:
		row = c.queryRow(ctx, `SELECT `+threadColumns+` FROM chat_threads t WHERE t.ai_owner_id = ?`, *t.AIOwnerID)
	default:
		return nil, fmt.Errorf("insert thread: %w", domain.ErrConflict)
	}
	existing, err := scanThread(row)
	if err != nil {
		return nil, fmt.Errorf("load existing thread: %w", err)
	}
	return existing, nil
}

func (r *ChatRepo) GetThread(ctx context.Context, id int64) (*domain.ChatThread, error) {
	t, err := scanThread(r.c.queryRow(ctx, `SELECT `+threadColumns+` FROM chat_threads t WHERE t.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "get thread")
	}
	return t, nil
}

// FindByDMKey returns nil, nil when no such thread exists.
func (r *ChatRepo) FindByDMKey(ctx context.Context, key string) (*domain.ChatThread, error) {
	return r.find(ctx, `SELECT `+threadColumns+` FROM chat_threads t WHERE t.dm_key = ?`, key)
}

// FindAIThread returns nil, nil when the user has no AI thread yet.
func (r *ChatRepo) FindAIThread(ctx context.Context, ownerID int64) (*domain.ChatThread, error) {
	return r.find(ctx, `SELECT `+threadColumns+` FROM chat_threads t WHERE t.ai_owner_id = ?`, ownerID)
}

func (r *ChatRepo) find(ctx context.Context, query string, arg any) (*domain.ChatThread, error) {
	t, err := scanThread(r.c.queryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find thread: %w", err)
	}
	return t, nil
}

func (r *ChatRepo) ListThreadsForUser(ctx context.Context, userID int64) ([]*domain.ChatThread, error) {
	rows, err := r.c.query(ctx, `
		SELECT `+threadColumns+`
		FROM chat_threads t
		WHERE `+participation+`
		ORDER BY COALESCE(t.last_message_at, t.created_at) DESC, t.id DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var res []*domain.ChatThread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *ChatRepo) ListParticipantIDs(ctx context.Context, threadID int64) ([]int64, error) {
	rows, err := r.c.query(ctx, `
		SELECT m.user_id FROM chat_threads t
		JOIN team_members m ON m.team_id = t.team_id
		WHERE t.id = ? AND t.type = 'team'
		UNION
		SELECT p.user_id FROM chat_threads t
		JOIN chat_participants p ON p.thread_id = t.id
		WHERE t.id = ? AND t.type <> 'team'
		ORDER BY 1
	`, threadID, threadID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChatRepo) IsParticipant(ctx context.Context, threadID, userID int64) (bool, error) {
	var n int
	err := r.c.queryRow(ctx, `
		SELECT COUNT(*) FROM chat_threads t WHERE t.id = ? AND `+participation,
		threadID, userID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return n > 0, nil
}

// CreateMessage stores m and bumps the thread's last_message_at.
func (r *ChatRepo) CreateMessage(ctx context.Context, m *domain.ChatMessage) error {
	m.CreatedAt = now()
	if m.Metadata == "" {
		m.Metadata = "{}"
	}
	return withTx(ctx, r.db, r.c.d, func(c conn) error {
		if err := c.queryRow(ctx, `
			INSERT INTO chat_messages (thread_id, sender_id, type, content, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`, m.ThreadID, m.SenderID, m.Type, m.Content, m.Metadata, m.CreatedAt).Scan(&m.ID); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if _, err := c.exec(ctx, `
			UPDATE chat_threads SET last_message_at = ? WHERE id = ?
		`, m.CreatedAt, m.ThreadID); err != nil {
			return fmt.Errorf("bump thread: %w", err)
		}
		return nil
	})
}

// ListMessages returns up to limit messages older than beforeID (all when
// beforeID is 0), oldest first.
func (r *ChatRepo) ListMessages(ctx context.Context, threadID, beforeID int64, limit int) ([]*domain.ChatMessage, error) {
	rows, err := r.c.query(ctx, `
		SELECT id, thread_id, sender_id, type, content, metadata, created_at
		FROM chat_messages
		WHERE thread_id = ? AND (? = 0 OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`, threadID, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.ChatMessage
	for rows.Next() {
		m := &domain.ChatMessage{}
		var sender sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ThreadID, &sender, &m.Type, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SenderID = nullInt(sender)
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

func scanThread(s rowScanner) (*domain.ChatThread, error) {
	t := &domain.ChatThread{}
	var (
		teamID, aiOwner, createdBy sql.NullInt64
		dmKey                      sql.NullString
		lastMsg                    sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Type, &teamID, &t.Title, &dmKey, &aiOwner, &createdBy, &t.CreatedAt, &lastMsg); err != nil {
		return nil, err
	}
	t.TeamID = nullInt(teamID)
	t.DMKey = nullString(dmKey)
	t.AIOwnerID = nullInt(aiOwner)
	t.CreatedBy = nullInt(createdBy)
	t.LastMessageAt = nullTime(lastMsg)
	return t, nil
}
