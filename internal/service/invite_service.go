package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/relation"
)

type InviteService struct {
	users   domain.UserRepository
	teams   domain.TeamRepository
	invites domain.TeamInviteRepository
	notes   Sender
	log     *logrus.Entry
}

func NewInviteService(users domain.UserRepository, teams domain.TeamRepository, invites domain.TeamInviteRepository, notes Sender, log *logrus.Entry) *InviteService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &InviteService{users: users, teams: teams, invites: invites, notes: notes, log: log.WithField("component", "invites")}
}

type InviteDetail struct {
	*domain.TeamInvite
	TeamName string      `json:"team_name"`
	Inviter  UserSummary `json:"inviter"`
	Invitee  UserSummary `json:"invitee"`
}

// requireManager loads the team and checks that the caller is its owner or
// admin, or holds teams.manage.
func (s *InviteService) requireManager(ctx context.Context, sess access.Session, teamID int64) (*domain.Team, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, asNotFound(err, "team")
	}
	if access.Can(sess, access.PermTeamsManage) {
		return t, nil
	}
	m, err := s.teams.GetMember(ctx, teamID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.Forbidden(domain.CodeNotMember, "you are not a member of this team")
	}
	if !relation.IsManager(m.Role) {
		return nil, domain.Forbidden(domain.CodeForbidden, "only team managers can manage invites")
	}
	return t, nil
}

func (s *InviteService) Create(ctx context.Context, sess access.Session, teamID, inviteeID int64) (*InviteDetail, error) {
	t, err := s.requireManager(ctx, sess, teamID)
	if err != nil {
		return nil, err
	}
	if inviteeID == sess.UserID {
		return nil, domain.Validation(domain.CodeSelfAction, "you cannot invite yourself")
	}
	invitee, err := activeUser(ctx, s.users, inviteeID)
	if err != nil {
		return nil, err
	}
	member, err := s.teams.GetMember(ctx, teamID, inviteeID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, domain.Conflict(domain.CodeAlreadyMember, "user is already a member")
	}
	pending, err := s.invites.FindPending(ctx, teamID, inviteeID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, domain.Conflict(domain.CodeInvitePending, "an invite is already pending")
	}

	inv := &domain.TeamInvite{TeamID: teamID, InviterID: sess.UserID, InviteeID: inviteeID, Status: domain.InvitePending}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, asConflict(err, domain.CodeInvitePending, "an invite is already pending")
	}

	inviter, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load inviter: %w", err)
	}
	s.notes.Send(ctx, inviteeID, NotificationInput{
		Type:      domain.NotificationInfo,
		Title:     TitleTeamInvite,
		Message:   nameOf(inviter) + " zaprasza Cię do zespołu \"" + t.Name + "\"",
		ActionURL: "/teams/invites",
	})
	return &InviteDetail{TeamInvite: inv, TeamName: t.Name, Inviter: summarize(inviter), Invitee: summarize(invitee)}, nil
}

func (s *InviteService) Cancel(ctx context.Context, sess access.Session, inviteID int64) error {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return asNotFound(err, "invite")
	}
	if _, err := s.requireManager(ctx, sess, inv.TeamID); err != nil {
		return err
	}
	if err := relation.CheckCancelInvite(inv); err != nil {
		return err
	}
	err = s.invites.UpdateStatus(ctx, inv.ID, domain.InvitePending, domain.InviteCancelled)
	return asConflict(err, domain.CodeInviteNotPending, "invite is no longer pending")
}

func (s *InviteService) ListForTeam(ctx context.Context, sess access.Session, teamID int64) ([]InviteDetail, error) {
	t, err := s.requireManager(ctx, sess, teamID)
	if err != nil {
		return nil, err
	}
	invs, err := s.invites.ListForTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, invs, map[int64]string{t.ID: t.Name})
}

// ListMine returns the caller's pending invites.
func (s *InviteService) ListMine(ctx context.Context, sess access.Session) ([]InviteDetail, error) {
	invs, err := s.invites.ListPendingForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, invs, map[int64]string{})
}

func (s *InviteService) details(ctx context.Context, invs []*domain.TeamInvite, names map[int64]string) ([]InviteDetail, error) {
	users := map[int64]UserSummary{}
	user := func(id int64) (UserSummary, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		u, err := s.users.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return UserSummary{ID: id, DisplayName: defaultDisplayName}, nil
		}
		if err != nil {
			return UserSummary{}, err
		}
		users[id] = summarize(u)
		return users[id], nil
	}

	out := make([]InviteDetail, 0, len(invs))
	for _, inv := range invs {
		name, ok := names[inv.TeamID]
		if !ok {
			t, err := s.teams.GetByID(ctx, inv.TeamID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			if t != nil {
				name = t.Name
			}
			names[inv.TeamID] = name
		}
		inviter, err := user(inv.InviterID)
		if err != nil {
			return nil, err
		}
		invitee, err := user(inv.InviteeID)
		if err != nil {
			return nil, err
		}
		out = append(out, InviteDetail{TeamInvite: inv, TeamName: name, Inviter: inviter, Invitee: invitee})
	}
	return out, nil
}

// Accept joins the invitee to the team. Of two concurrent accepts exactly
// one succeeds; the other sees invite_not_pending.
func (s *InviteService) Accept(ctx context.Context, sess access.Session, inviteID int64) (*domain.Member, error) {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, asNotFound(err, "invite")
	}
	if err := relation.CheckAnswerInvite(inv, sess.UserID); err != nil {
		return nil, err
	}
	t, err := s.teams.GetByID(ctx, inv.TeamID)
	if err != nil {
		return nil, asNotFound(err, "team")
	}
	member, err := s.invites.Accept(ctx, inv.ID)
	if err != nil {
		return nil, asConflict(err, domain.CodeInviteNotPending, "invite is no longer pending")
	}

	invitee, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load invitee: %w", err)
	}
	members, err := s.teams.ListMembers(ctx, t.ID)
	if err != nil {
		s.log.WithError(err).WithField("team_id", t.ID).Warn("list managers for notification")
		return member, nil
	}
	for _, m := range members {
		if m.UserID == sess.UserID || !relation.IsManager(m.Role) {
			continue
		}
		s.notes.Send(ctx, m.UserID, NotificationInput{
			Type:    domain.NotificationSuccess,
			Title:   TitleTeamInviteAccepted,
			Message: nameOf(invitee) + " dołączył(a) do zespołu \"" + t.Name + "\"",
		})
	}
	return member, nil
}

func (s *InviteService) Decline(ctx context.Context, sess access.Session, inviteID int64) (*domain.TeamInvite, error) {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, asNotFound(err, "invite")
	}
	if err := relation.CheckAnswerInvite(inv, sess.UserID); err != nil {
		return nil, err
	}
	if err := s.invites.UpdateStatus(ctx, inv.ID, domain.InvitePending, domain.InviteDeclined); err != nil {
		return nil, asConflict(err, domain.CodeInviteNotPending, "invite is no longer pending")
	}
	inv.Status = domain.InviteDeclined

	teamName := ""
	if t, err := s.teams.GetByID(ctx, inv.TeamID); err == nil {
		teamName = t.Name
	}
	invitee, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load invitee: %w", err)
	}
	s.notes.Send(ctx, inv.InviterID, NotificationInput{
		Type:    domain.NotificationWarning,
		Title:   TitleTeamInviteDeclined,
		Message: nameOf(invitee) + " odrzucił(a) zaproszenie do zespołu \"" + teamName + "\"",
	})
	return inv, nil
}

// Delete lets the invitee drop a declined invite from their history.
func (s *InviteService) Delete(ctx context.Context, sess access.Session, inviteID int64) error {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return asNotFound(err, "invite")
	}
	if err := relation.CheckDeleteInvite(inv, sess.UserID); err != nil {
		return err
	}
	err = s.invites.DeleteWithStatus(ctx, inv.ID, domain.InviteDeclined)
	return asConflict(err, domain.CodeInviteNotDeclined, "only declined invites can be deleted")
}
