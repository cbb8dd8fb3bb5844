package store

import (
	"context"
	"database/sql"
	"fmt"

	"teamhub/internal/domain"
)

type NotificationRepo struct {
	db *sql.DB
	c  conn
}

func NewNotificationRepo(db *sql.DB, d Dialect) *NotificationRepo {
	return &NotificationRepo{db: db, c: conn{q: db, d: d}}
}

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	n.CreatedAt = now()
	err := r.c.queryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, is_read, action_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, n.UserID, n.Type, n.Title, n.Message, n.Read, n.ActionURL, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListForUser returns one page, newest first, plus the total matching rows.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, unreadOnly bool, offset, limit int) ([]*domain.Notification, int, error) {
	where := `user_id = ?`
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int
	if err := r.c.queryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.c.query(ctx, `
		SELECT id, user_id, type, title, message, is_read, action_url, created_at
		FROM notifications
		WHERE `+where+`
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var res []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var action sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &action, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		n.ActionURL = nullString(action)
		res = append(res, n)
	}
	return res, total, rows.Err()
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.c.queryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE
	`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var changed []int64
	err := withTx(ctx, r.db, r.c.d, func(c conn) error {
		args := []any{userID}
		for _, id := range ids {
			args = append(args, id)
		}
		rows, err := c.query(ctx, `
			SELECT id FROM notifications
			WHERE user_id = ? AND is_read = FALSE AND id IN (`+inList(len(ids))+`)
			ORDER BY id
		`, args...)
		if err != nil {
			return fmt.Errorf("select unread: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan id: %w", err)
			}
			changed = append(changed, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}

		upd := []any{userID}
		for _, id := range changed {
			upd = append(upd, id)
		}
		if _, err := c.exec(ctx, `
			UPDATE notifications SET is_read = TRUE
			WHERE user_id = ? AND id IN (`+inList(len(changed))+`)
		`, upd...); err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	res, err := r.c.exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all read: rows affected: %w", err)
	}
	return int(n), nil
}
