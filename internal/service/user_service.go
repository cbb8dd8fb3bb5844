package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
)

// Disconnector drops a user's live connections.
type Disconnector interface {
	DisconnectUser(userID int64)
}

// OwnedTeams removes the teams a user owns before the account goes.
type OwnedTeams interface {
	DeleteOwnedBy(ctx context.Context, ownerID int64) error
}

// UserService provides user-related operations.
type UserService struct {
	users domain.UserRepository
	teams OwnedTeams
	peers Disconnector
	log   *logrus.Entry
}

func NewUserService(users domain.UserRepository, teams OwnedTeams, peers Disconnector, log *logrus.Entry) *UserService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &UserService{users: users, teams: teams, peers: peers, log: log.WithField("component", "users")}
}

func (s *UserService) Me(ctx context.Context, sess access.Session) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized("account no longer exists")
	}
	return u, err
}

// List pages through active users, for picking friends and invitees.
func (s *UserService) List(ctx context.Context, sess access.Session, offset, limit int) ([]UserSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		if u.ID == sess.UserID || !u.IsActive() {
			continue
		}
		out = append(out, summarize(u))
	}
	return out, nil
}

// Deactivate hides the caller's account until the next login and closes
// their live connections.
func (s *UserService) Deactivate(ctx context.Context, sess access.Session) error {
	at := time.Now().UTC()
	if err := s.users.SetDeactivated(ctx, sess.UserID, &at); err != nil {
		return asNotFound(err, "user")
	}
	s.peers.DisconnectUser(sess.UserID)
	s.log.WithField("user_id", sess.UserID).Info("user deactivated")
	return nil
}

// Delete removes userID and everything it owns. Users delete themselves;
// deleting someone else takes users.manage.
func (s *UserService) Delete(ctx context.Context, sess access.Session, userID int64) error {
	if userID != sess.UserID {
		if err := access.Require(sess, access.PermUsersManage); err != nil {
			return err
		}
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return asNotFound(err, "user")
	}
	if err := s.teams.DeleteOwnedBy(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	s.peers.DisconnectUser(userID)
	s.log.WithFields(logrus.Fields{"user_id": userID, "by": sess.UserID}).Info("user deleted")
	return nil
}
