package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamhub/internal/domain"
)

type TeamRepo struct {
	db *sql.DB
	c  conn
}

func NewTeamRepo(db *sql.DB, d Dialect) *TeamRepo {
	return &TeamRepo{db: db, c: conn{q: db, d: d}}
}

var _ domain.TeamRepository = (*TeamRepo)(nil)

// Create inserts the team and its owner membership together.
func (r *TeamRepo) Create(ctx context.Context, t *domain.Team) error {
	t.CreatedAt = now()
	return withTx(ctx, r.db, r.c.d, func(c conn) error {
		err := c.queryRow(ctx, `
			INSERT INTO teams (name, slug, owner_id, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`, t.Name, t.Slug, t.OwnerID, t.CreatedAt).Scan(&t.ID)
		if err != nil {
			if c.d.IsUniqueViolation(err) {
				return fmt.Errorf("insert team: %w", domain.ErrConflict)
			}
			return fmt.Errorf("insert team: %w", err)
		}
		if _, err := c.exec(ctx, `
			INSERT INTO team_members (team_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)
		`, t.ID, t.OwnerID, domain.TeamOwner, t.CreatedAt); err != nil {
			return fmt.Errorf("insert owner member: %w", err)
		}
		return nil
	})
}

func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	t, err := scanTeam(r.c.queryRow(ctx, `SELECT id, name, slug, owner_id, created_at FROM teams WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "get team")
	}
	return t, nil
}

func (r *TeamRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Team, error) {
	rows, err := r.c.query(ctx, `
		SELECT t.id, t.name, t.slug, t.owner_id, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var res []*domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TeamRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.c.exec(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return requireFound(res, "delete team")
}

// GetMember returns nil, nil when userID is not a member.
func (r *TeamRepo) GetMember(ctx context.Context, teamID, userID int64) (*domain.Member, error) {
	m := &domain.Member{}
	err := r.c.queryRow(ctx, `
		SELECT team_id, user_id, role, joined_at FROM team_members WHERE team_id = ? AND user_id = ?
	`, teamID, userID).Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *TeamRepo) ListMembers(ctx context.Context, teamID int64) ([]*domain.Member, error) {
	rows, err := r.c.query(ctx, `
		SELECT team_id, user_id, role, joined_at
		FROM team_members
		WHERE team_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var res []*domain.Member
	for rows.Next() {
		m := &domain.Member{}
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID int64) error {
	res, err := r.c.exec(ctx, `DELETE FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return requireFound(res, "remove member")
}

func (r *TeamRepo) UpdateMemberRole(ctx context.Context, teamID, userID int64, role domain.TeamRole) error {
	res, err := r.c.exec(ctx, `
		UPDATE team_members SET role = ? WHERE team_id = ? AND user_id = ?
	`, role, teamID, userID)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return requireFound(res, "update member role")
}

func (r *TeamRepo) CountRole(ctx context.Context, teamID int64, role domain.TeamRole) (int, error) {
	var n int
	err := r.c.queryRow(ctx, `
		SELECT COUNT(*) FROM team_members WHERE team_id = ? AND role = ?
	`, teamID, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count role: %w", err)
	}
	return n, nil
}

func scanTeam(s rowScanner) (*domain.Team, error) {
	t := &domain.Team{}
	var slug sql.NullString
	if err := s.Scan(&t.ID, &t.Name, &slug, &t.OwnerID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Slug = nullString(slug)
	return t, nil
}
