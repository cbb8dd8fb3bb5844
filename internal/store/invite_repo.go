package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamhub/internal/domain"
)

type TeamInviteRepo struct {
	db *sql.DB
	c  conn
}

func NewTeamInviteRepo(db *sql.DB, d Dialect) *TeamInviteRepo {
	return &TeamInviteRepo{db: db, c: conn{q: db, d: d}}
}

var _ domain.TeamInviteRepository = (*TeamInviteRepo)(nil)

const inviteColumns = `id, team_id, inviter_id, invitee_id, status, created_at, updated_at`

func (r *TeamInviteRepo) Create(ctx context.Context, inv *domain.TeamInvite) error {
	ts := now()
	inv.CreatedAt, inv.UpdatedAt = ts, ts
	err := r.c.queryRow(ctx, `
		INSERT INTO team_invites (team_id, inviter_id, invitee_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, inv.TeamID, inv.InviterID, inv.InviteeID, inv.Status, ts, ts).Scan(&inv.ID)
	if err != nil {
		if r.c.d.IsUniqueViolation(err) {
			return fmt.Errorf("insert team invite: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert team invite: %w", err)
	}
	return nil
}

func (r *TeamInviteRepo) GetByID(ctx context.Context, id int64) (*domain.TeamInvite, error) {
	inv, err := scanInvite(r.c.queryRow(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "get team invite")
	}
	return inv, nil
}

// FindPending returns nil, nil when there is no pending invite.
func (r *TeamInviteRepo) FindPending(ctx context.Context, teamID, inviteeID int64) (*domain.TeamInvite, error) {
	inv, err := scanInvite(r.c.queryRow(ctx, `
		SELECT `+inviteColumns+` FROM team_invites
		WHERE team_id = ? AND invitee_id = ? AND status = ?
	`, teamID, inviteeID, domain.InvitePending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending invite: %w", err)
	}
	return inv, nil
}

func (r *TeamInviteRepo) ListForTeam(ctx context.Context, teamID int64) ([]*domain.TeamInvite, error) {
	return r.list(ctx, `
		SELECT `+inviteColumns+` FROM team_invites WHERE team_id = ? ORDER BY id DESC
	`, teamID)
}

func (r *TeamInviteRepo) ListPendingForUser(ctx context.Context, userID int64) ([]*domain.TeamInvite, error) {
	return r.list(ctx, `
		SELECT `+inviteColumns+` FROM team_invites WHERE invitee_id = ? AND status = ? ORDER BY id DESC
	`, userID, domain.InvitePending)
}

func (r *TeamInviteRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.InviteStatus) error {
	res, err := r.c.exec(ctx, `
		UPDATE team_invites SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, to, now(), id, from)
	if err != nil {
		return fmt.Errorf("update team invite: %w", err)
	}
	return requireRow(res, "update team invite")
}

// Accept moves a pending invite to accepted and adds the invitee as a
// member. A second Accept of the same invite fails with ErrConflict.
func (r *TeamInviteRepo) Accept(ctx context.Context, id int64) (*domain.Member, error) {
	var m *domain.Member
	err := withTx(ctx, r.db, r.c.d, func(c conn) error {
		ts := now()
		res, err := c.exec(ctx, `
			UPDATE team_invites SET status = ?, updated_at = ? WHERE id = ? AND status = ?
		`, domain.InviteAccepted, ts, id, domain.InvitePending)
		if err != nil {
			return fmt.Errorf("accept team invite: %w", err)
		}
		if err := requireRow(res, "accept team invite"); err != nil {
			return err
		}

		m = &domain.Member{Role: domain.TeamMember, JoinedAt: ts}
		if err := c.queryRow(ctx, `SELECT team_id, invitee_id FROM team_invites WHERE id = ?`, id).
			Scan(&m.TeamID, &m.UserID); err != nil {
			return fmt.Errorf("load accepted invite: %w", err)
		}
		if _, err := c.exec(ctx, `
			INSERT INTO team_members (team_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)
		`, m.TeamID, m.UserID, m.Role, m.JoinedAt); err != nil {
			if c.d.IsUniqueViolation(err) {
				return fmt.Errorf("insert member: %w", domain.ErrConflict)
			}
			return fmt.Errorf("insert member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *TeamInviteRepo) DeleteWithStatus(ctx context.Context, id int64, status domain.InviteStatus) error {
	res, err := r.c.exec(ctx, `DELETE FROM team_invites WHERE id = ? AND status = ?`, id, status)
	if err != nil {
		return fmt.Errorf("delete team invite: %w", err)
	}
	return requireRow(res, "delete team invite")
}

func (r *TeamInviteRepo) list(ctx context.Context, query string, args ...any) ([]*domain.TeamInvite, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list team invites: %w", err)
	}
	defer rows.Close()

	var res []*domain.TeamInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team invite: %w", err)
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

func scanInvite(s rowScanner) (*domain.TeamInvite, error) {
	inv := &domain.TeamInvite{}
	if err := s.Scan(&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	return inv, nil
}
