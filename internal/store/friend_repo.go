package store

import (
	"context"
	"database/sql"
	"fmt"

	"teamhub/internal/domain"
)

type FriendRepo struct {
	c conn
}

func NewFriendRepo(db *sql.DB, d Dialect) *FriendRepo {
	return &FriendRepo{c: conn{q: db, d: d}}
}

var _ domain.FriendRepository = (*FriendRepo)(nil)

const friendColumns = `id, sender_id, receiver_id, status, created_at, updated_at`

func (r *FriendRepo) Create(ctx context.Context, fr *domain.FriendRequest) error {
	ts := now()
	fr.CreatedAt, fr.UpdatedAt = ts, ts
	err := r.c.queryRow(ctx, `
		INSERT INTO friend_requests (sender_id, receiver_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, fr.SenderID, fr.ReceiverID, fr.Status, ts, ts).Scan(&fr.ID)
	if err != nil {
		if r.c.d.IsUniqueViolation(err) {
			return fmt.Errorf("insert friend request: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

func (r *FriendRepo) GetByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	fr, err := scanFriend(r.c.queryRow(ctx, `SELECT `+friendColumns+` FROM friend_requests WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "get friend request")
	}
	return fr, nil
}

func (r *FriendRepo) ListBetween(ctx context.Context, a, b int64) ([]*domain.FriendRequest, error) {
	return r.list(ctx, `
		SELECT `+friendColumns+`
		FROM friend_requests
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY id ASC
	`, a, b, b, a)
}

func (r *FriendRepo) ListForUser(ctx context.Context, userID int64, statuses ...domain.FriendStatus) ([]*domain.FriendRequest, error) {
	args := []any{userID, userID}
	q := `SELECT ` + friendColumns + ` FROM friend_requests WHERE (sender_id = ? OR receiver_id = ?)`
	if len(statuses) > 0 {
		q += ` AND status IN (` + inList(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	q += ` ORDER BY updated_at DESC, id DESC`
	return r.list(ctx, q, args...)
}

func (r *FriendRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.FriendStatus) error {
	res, err := r.c.exec(ctx, `
		UPDATE friend_requests SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, now(), id, from)
	if err != nil {
		return r.wrap(err, "update friend request")
	}
	return requireRow(res, "update friend request")
}

func (r *FriendRepo) Overwrite(ctx context.Context, id, senderID, receiverID int64, to domain.FriendStatus, from ...domain.FriendStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("overwrite friend request: no source status")
	}
	args := []any{senderID, receiverID, to, now(), id}
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.c.exec(ctx, `
		UPDATE friend_requests SET sender_id = ?, receiver_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND status IN (`+inList(len(from))+`)
	`, args...)
	if err != nil {
		return r.wrap(err, "overwrite friend request")
	}
	return requireRow(res, "overwrite friend request")
}

func (r *FriendRepo) DeleteWithStatus(ctx context.Context, id int64, status domain.FriendStatus) error {
	res, err := r.c.exec(ctx, `DELETE FROM friend_requests WHERE id = ? AND status = ?`, id, status)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	return requireRow(res, "delete friend request")
}

func (r *FriendRepo) wrap(err error, what string) error {
	if r.c.d.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (r *FriendRepo) list(ctx context.Context, query string, args ...any) ([]*domain.FriendRequest, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	var res []*domain.FriendRequest
	for rows.Next() {
		fr, err := scanFriend(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		res = append(res, fr)
	}
	return res, rows.Err()
}

func scanFriend(s rowScanner) (*domain.FriendRequest, error) {
	fr := &domain.FriendRequest{}
	if err := s.Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
		return nil, err
	}
	return fr, nil
}
