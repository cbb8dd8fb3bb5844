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

type FriendService struct {
	users   domain.UserRepository
	friends domain.FriendRepository
	notes   Sender
	log     *logrus.Entry
}

func NewFriendService(users domain.UserRepository, friends domain.FriendRepository, notes Sender, log *logrus.Entry) *FriendService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FriendService{users: users, friends: friends, notes: notes, log: log.WithField("component", "friends")}
}

// current returns the single active edge between a and b, if any. Every
// mutating operation decides from this one view of the pair.
func (s *FriendService) current(ctx context.Context, a, b int64) (*domain.FriendRequest, error) {
	edges, err := s.friends.ListBetween(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("load relationship: %w", err)
	}
	return relation.ResolveFriendship(edges), nil
}

func (s *FriendService) Invite(ctx context.Context, sess access.Session, receiverID int64) (*domain.FriendRequest, error) {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return nil, err
	}
	if err := relation.CheckInvite(nil, sess.UserID, receiverID); err != nil {
		return nil, err
	}
	sender, err := activeUser(ctx, s.users, sess.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := activeUser(ctx, s.users, receiverID); err != nil {
		return nil, err
	}

	active, err := s.current(ctx, sess.UserID, receiverID)
	if err != nil {
		return nil, err
	}
	if err := relation.CheckInvite(active, sess.UserID, receiverID); err != nil {
		return nil, err
	}

	fr := &domain.FriendRequest{SenderID: sess.UserID, ReceiverID: receiverID, Status: domain.FriendPending}
	if err := s.friends.Create(ctx, fr); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// lost a race with the other side; report what won
			won, err := s.current(ctx, sess.UserID, receiverID)
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"sender_id":   sess.UserID,
					"receiver_id": receiverID,
				}).Warn("reload relationship after insert conflict")
			}
			if won != nil {
				return nil, relation.ActiveEdgeConflict(won.Status)
			}
			return nil, domain.Conflict(domain.CodeFriendPending, "a friend request already exists")
		}
		return nil, err
	}

	s.notes.Send(ctx, receiverID, NotificationInput{
		Type:      domain.NotificationInfo,
		Title:     TitleFriendInvite,
		Message:   sender.DisplayName + " zaprasza Cię do znajomych",
		ActionURL: "/friends",
	})
	return fr, nil
}

func (s *FriendService) load(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	fr, err := s.friends.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "friend request")
	}
	return fr, nil
}

func (s *FriendService) Accept(ctx context.Context, sess access.Session, requestID int64) (*domain.FriendRequest, error) {
	fr, err := s.answer(ctx, sess, requestID, relation.CheckAccept, domain.FriendAccepted)
	if err != nil {
		return nil, err
	}
	s.notes.Send(ctx, fr.SenderID, NotificationInput{
		Type:      domain.NotificationSuccess,
		Title:     TitleFriendAccepted,
		Message:   s.displayName(ctx, fr.ReceiverID) + " przyjął(-ęła) Twoje zaproszenie",
		ActionURL: "/friends",
	})
	return fr, nil
}

func (s *FriendService) Decline(ctx context.Context, sess access.Session, requestID int64) (*domain.FriendRequest, error) {
	fr, err := s.answer(ctx, sess, requestID, relation.CheckDecline, domain.FriendDeclined)
	if err != nil {
		return nil, err
	}
	s.notes.Send(ctx, fr.SenderID, NotificationInput{
		Type:    domain.NotificationWarning,
		Title:   TitleFriendDeclined,
		Message: s.displayName(ctx, fr.ReceiverID) + " odrzucił(a) Twoje zaproszenie",
	})
	return fr, nil
}

func (s *FriendService) answer(
	ctx context.Context,
	sess access.Session,
	requestID int64,
	check func(*domain.FriendRequest, int64) error,
	to domain.FriendStatus,
) (*domain.FriendRequest, error) {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return nil, err
	}
	fr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := check(fr, sess.UserID); err != nil {
		return nil, err
	}
	if err := s.friends.UpdateStatus(ctx, fr.ID, domain.FriendPending, to); err != nil {
		return nil, asConflict(err, domain.CodeRequestNotPending, "friend request is no longer pending")
	}
	fr.Status = to
	return fr, nil
}

func (s *FriendService) Cancel(ctx context.Context, sess access.Session, requestID int64) (*domain.FriendRequest, error) {
	return s.answer(ctx, sess, requestID, relation.CheckCancel, domain.FriendCancelled)
}

// Block makes sess.UserID the blocker of targetID, replacing any pending or
// accepted edge between them.
func (s *FriendService) Block(ctx context.Context, sess access.Session, targetID int64) (*domain.FriendRequest, error) {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return nil, err
	}
	if sess.UserID != targetID {
		if _, err := activeUser(ctx, s.users, targetID); err != nil {
			return nil, err
		}
	}
	active, err := s.current(ctx, sess.UserID, targetID)
	if err != nil {
		return nil, err
	}
	plan, err := relation.PlanBlock(active, sess.UserID, targetID)
	if err != nil {
		return nil, err
	}

	switch plan.Action {
	case relation.BlockNoop:
		return plan.Edge, nil
	case relation.BlockOverwrite:
		err := s.friends.Overwrite(ctx, plan.Edge.ID, sess.UserID, targetID, domain.FriendBlocked,
			domain.FriendPending, domain.FriendAccepted)
		if err != nil {
			return nil, asConflict(err, domain.CodeBlocked, "relationship changed, try again")
		}
		edge := *plan.Edge
		edge.SenderID, edge.ReceiverID, edge.Status = sess.UserID, targetID, domain.FriendBlocked
		return &edge, nil
	default:
		fr := &domain.FriendRequest{SenderID: sess.UserID, ReceiverID: targetID, Status: domain.FriendBlocked}
		if err := s.friends.Create(ctx, fr); err != nil {
			return nil, asConflict(err, domain.CodeBlocked, "relationship changed, try again")
		}
		return fr, nil
	}
}

// Unblock lifts a block placed by sess.UserID and reports whether anything
// changed. The block record is removed, leaving the pair with no edge.
func (s *FriendService) Unblock(ctx context.Context, sess access.Session, targetID int64) (bool, error) {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return false, err
	}
	active, err := s.current(ctx, sess.UserID, targetID)
	if err != nil {
		return false, err
	}
	changed, err := relation.PlanUnblock(active, sess.UserID)
	if err != nil || !changed {
		return false, err
	}
	if err := s.friends.DeleteWithStatus(ctx, active.ID, domain.FriendBlocked); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove ends an accepted friendship; either side may do it.
func (s *FriendService) Remove(ctx context.Context, sess access.Session, friendID int64) error {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return err
	}
	active, err := s.current(ctx, sess.UserID, friendID)
	if err != nil {
		return err
	}
	if err := relation.CheckRemoveFriend(active); err != nil {
		return err
	}
	err = s.friends.DeleteWithStatus(ctx, active.ID, domain.FriendAccepted)
	return asConflict(err, domain.CodeNotFriends, "you are not friends")
}

func (s *FriendService) DeleteDeclined(ctx context.Context, sess access.Session, requestID int64) error {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return err
	}
	fr, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if err := relation.CheckDeleteDeclined(fr, sess.UserID); err != nil {
		return err
	}
	err = s.friends.DeleteWithStatus(ctx, fr.ID, domain.FriendDeclined)
	return asConflict(err, domain.CodeRequestNotDeclined, "only declined requests can be deleted")
}

type FriendEntry struct {
	RequestID int64               `json:"request_id"`
	Status    domain.FriendStatus `json:"status"`
	User      UserSummary         `json:"user"`
}

type FriendOverview struct {
	Friends  []FriendEntry `json:"friends"`
	Incoming []FriendEntry `json:"incoming"`
	Outgoing []FriendEntry `json:"outgoing"`
	Blocked  []FriendEntry `json:"blocked"`
}

func (s *FriendService) List(ctx context.Context, sess access.Session) (*FriendOverview, error) {
	if err := access.Require(sess, access.PermFriendsManage); err != nil {
		return nil, err
	}
	edges, err := s.friends.ListForUser(ctx, sess.UserID, domain.FriendPending, domain.FriendAccepted, domain.FriendBlocked)
	if err != nil {
		return nil, err
	}

	out := &FriendOverview{
		Friends:  []FriendEntry{},
		Incoming: []FriendEntry{},
		Outgoing: []FriendEntry{},
		Blocked:  []FriendEntry{},
	}
	for _, e := range edges {
		other, err := s.users.GetByID(ctx, e.Other(sess.UserID))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entry := FriendEntry{RequestID: e.ID, Status: e.Status, User: summarize(other)}
		switch {
		case e.Status == domain.FriendAccepted:
			out.Friends = append(out.Friends, entry)
		case e.Status == domain.FriendPending && e.ReceiverID == sess.UserID:
			out.Incoming = append(out.Incoming, entry)
		case e.Status == domain.FriendPending:
			out.Outgoing = append(out.Outgoing, entry)
		case e.Status == domain.FriendBlocked && e.SenderID == sess.UserID:
			out.Blocked = append(out.Blocked, entry)
		}
	}
	return out, nil
}

func (s *FriendService) displayName(ctx context.Context, userID int64) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Debug("display name lookup failed")
		return defaultDisplayName
	}
	return nameOf(u)
}
