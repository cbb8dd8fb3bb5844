package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/relation"
)

const maxTeamName = 100

type TeamService struct {
	users domain.UserRepository
	teams domain.TeamRepository
	notes Sender
	log   *logrus.Entry
}

func NewTeamService(users domain.UserRepository, teams domain.TeamRepository, notes Sender, log *logrus.Entry) *TeamService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TeamService{users: users, teams: teams, notes: notes, log: log.WithField("component", "teams")}
}

type TeamDetail struct {
	*domain.Team
	MyRole domain.TeamRole `json:"my_role,omitempty"`
}

// Create makes sess.UserID the owner of a new team. Without an explicit slug
// one is derived from the name with a random suffix.
func (s *TeamService) Create(ctx context.Context, sess access.Session, name string, slug *string) (*TeamDetail, error) {
	if err := access.Require(sess, access.PermTeamsCreate); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxTeamName {
		return nil, domain.Validation(domain.CodeValidation, "invalid team name",
			domain.Issue{Field: "name", Rule: "len", Message: fmt.Sprintf("1 to %d characters", maxTeamName)})
	}
	var finalSlug string
	if slug != nil && strings.TrimSpace(*slug) != "" {
		finalSlug = strings.ToLower(strings.TrimSpace(*slug))
	} else {
		finalSlug = Slugify(name) + "-" + uuid.NewString()[:8]
	}

	t := &domain.Team{Name: name, Slug: &finalSlug, OwnerID: sess.UserID}
	if err := s.teams.Create(ctx, t); err != nil {
		return nil, asConflict(err, domain.CodeSlugTaken, "team slug is already taken")
	}
	return &TeamDetail{Team: t, MyRole: domain.TeamOwner}, nil
}

// Slugify lowercases s and keeps letters and digits, joining runs of
// anything else with a single dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "team"
	}
	return out
}

func (s *TeamService) load(ctx context.Context, teamID int64) (*domain.Team, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, asNotFound(err, "team")
	}
	return t, nil
}

// membership returns the caller's membership, or nil when the caller is
// not a member but may act through teams.manage. Anyone else is refused.
func (s *TeamService) membership(ctx context.Context, sess access.Session, teamID int64) (*domain.Member, error) {
	m, err := s.teams.GetMember(ctx, teamID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if m == nil && !access.Can(sess, access.PermTeamsManage) {
		return nil, domain.Forbidden(domain.CodeNotMember, "you are not a member of this team")
	}
	return m, nil
}

// acting returns the membership the caller acts through, or nil when
// teams.manage lets them act whatever their role in the team.
func acting(sess access.Session, m *domain.Member) *domain.Member {
	if access.Can(sess, access.PermTeamsManage) {
		return nil
	}
	return m
}

func (s *TeamService) Get(ctx context.Context, sess access.Session, teamID int64) (*TeamDetail, error) {
	t, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	m, err := s.membership(ctx, sess, teamID)
	if err != nil {
		return nil, err
	}
	d := &TeamDetail{Team: t}
	if m != nil {
		d.MyRole = m.Role
	}
	return d, nil
}

func (s *TeamService) ListMine(ctx context.Context, sess access.Session) ([]*domain.Team, error) {
	teams, err := s.teams.ListForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []*domain.Team{}
	}
	return teams, nil
}

// Delete removes the team with everything hanging off it. The owner may do
// it, or anyone holding teams.manage. Other members are told.
func (s *TeamService) Delete(ctx context.Context, sess access.Session, teamID int64) error {
	t, err := s.load(ctx, teamID)
	if err != nil {
		return err
	}
	if t.OwnerID != sess.UserID && !access.Can(sess, access.PermTeamsManage) {
		return domain.Forbidden(domain.CodeForbidden, "only the owner can delete the team")
	}
	return s.remove(ctx, t, sess.UserID)
}

// DeleteOwnedBy removes every team ownerID owns, telling the remaining
// members. It runs before the owner's account is deleted.
func (s *TeamService) DeleteOwnedBy(ctx context.Context, ownerID int64) error {
	teams, err := s.teams.ListForUser(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		if t.OwnerID != ownerID {
			continue
		}
		if err := s.remove(ctx, t, ownerID); err != nil {
			return fmt.Errorf("delete team %d: %w", t.ID, err)
		}
	}
	return nil
}

func (s *TeamService) remove(ctx context.Context, t *domain.Team, actorID int64) error {
	members, err := s.teams.ListMembers(ctx, t.ID)
	if err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, t.ID); err != nil {
		return asNotFound(err, "team")
	}
	for _, m := range members {
		if m.UserID == actorID {
			continue
		}
		s.notes.Send(ctx, m.UserID, NotificationInput{
			Type:    domain.NotificationWarning,
			Title:   TitleTeamDeleted,
			Message: "Zespół \"" + t.Name + "\" został usunięty",
		})
	}
	s.log.WithFields(logrus.Fields{"team_id": t.ID, "by": actorID}).Info("team deleted")
	return nil
}

type MemberDetail struct {
	*domain.Member
	User UserSummary `json:"user"`
}

func (s *TeamService) ListMembers(ctx context.Context, sess access.Session, teamID int64) ([]MemberDetail, error) {
	if _, err := s.load(ctx, teamID); err != nil {
		return nil, err
	}
	if _, err := s.membership(ctx, sess, teamID); err != nil {
		return nil, err
	}
	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberDetail, 0, len(members))
	for _, m := range members {
		u, err := s.users.GetByID(ctx, m.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, MemberDetail{Member: m, User: summarize(u)})
	}
	return out, nil
}

// RemoveMember removes userID from the team. Members may remove themselves;
// managers may remove others, except that only an owner removes an owner and
// the last owner never goes.
func (s *TeamService) RemoveMember(ctx context.Context, sess access.Session, teamID, userID int64) error {
	t, err := s.load(ctx, teamID)
	if err != nil {
		return err
	}
	actor, err := s.membership(ctx, sess, teamID)
	if err != nil {
		return err
	}
	target, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return domain.NotFound("member not found")
	}
	owners, err := s.teams.CountRole(ctx, teamID, domain.TeamOwner)
	if err != nil {
		return err
	}
	if err := relation.CheckRemoveMember(acting(sess, actor), target, owners); err != nil {
		return err
	}
	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return asNotFound(err, "member")
	}
	if userID != sess.UserID {
		s.notes.Send(ctx, userID, NotificationInput{
			Type:    domain.NotificationWarning,
			Title:   TitleTeamMemberRemoved,
			Message: "Usunięto Cię z zespołu \"" + t.Name + "\"",
		})
	}
	return nil
}

func (s *TeamService) UpdateMemberRole(ctx context.Context, sess access.Session, teamID, userID int64, role domain.TeamRole) (*domain.Member, error) {
	if _, err := s.load(ctx, teamID); err != nil {
		return nil, err
	}
	actor, err := s.membership(ctx, sess, teamID)
	if err != nil {
		return nil, err
	}
	target, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.NotFound("member not found")
	}
	if err := relation.CheckRoleChange(acting(sess, actor), target, role); err != nil {
		return nil, err
	}
	if err := s.teams.UpdateMemberRole(ctx, teamID, userID, role); err != nil {
		return nil, asNotFound(err, "member")
	}
	target.Role = role
	return target, nil
}
