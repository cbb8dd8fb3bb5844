package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/realtime"
)

// Notification titles shown to users.
const (
	TitleFriendInvite       = "Nowe zaproszenie do znajomych"
	TitleFriendAccepted     = "Zaproszenie zaakceptowane"
	TitleFriendDeclined     = "Zaproszenie odrzucone"
	TitleTeamDeleted        = "Zespół usunięty"
	TitleTeamInvite         = "Zaproszenie do zespołu"
	TitleTeamInviteAccepted = "Nowy członek zespołu"
	TitleTeamInviteDeclined = "Zaproszenie do zespołu odrzucone"
	TitleTeamMemberRemoved  = "Usunięto z zespołu"
)

type NotificationInput struct {
	Type      domain.NotificationType
	Title     string
	Message   string
	ActionURL string
}

// NotificationDTO is the client-facing notification, also the payload of
// notification.new.
type NotificationDTO struct {
	ID        int64                   `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
	ActionURL *string                 `json:"action_url,omitempty"`
}

func NotificationToDTO(n *domain.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		ActionURL: n.ActionURL,
	}
}

// Sender is how use-cases notify users. It never fails the caller: the
// state change it describes has already been committed.
type Sender interface {
	Send(ctx context.Context, userID int64, in NotificationInput)
}

type NotificationService struct {
	repo     domain.NotificationRepository
	notifier realtime.Notifier
	log      *logrus.Entry
}

var _ Sender = (*NotificationService)(nil)

func NewNotificationService(repo domain.NotificationRepository, notifier realtime.Notifier, log *logrus.Entry) *NotificationService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &NotificationService{repo: repo, notifier: notifier, log: log.WithField("component", "notifications")}
}

// Create persists a notification for userID and pushes it to the user's
// live notification peers.
func (s *NotificationService) Create(ctx context.Context, userID int64, in NotificationInput) (*domain.Notification, error) {
	if in.Type == "" {
		in.Type = domain.NotificationInfo
	}
	n := &domain.Notification{
		UserID:  userID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
	}
	if in.ActionURL != "" {
		url := in.ActionURL
		n.ActionURL = &url
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.notifier.Notify(userID, realtime.Envelope{Type: realtime.TypeNotificationNew, Payload: NotificationToDTO(n)})
	return n, nil
}

func (s *NotificationService) Send(ctx context.Context, userID int64, in NotificationInput) {
	if _, err := s.Create(ctx, userID, in); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "title": in.Title}).Warn("notification dropped")
	}
}

type NotificationPage struct {
	Items   []NotificationDTO `json:"items"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

func (s *NotificationService) List(ctx context.Context, sess access.Session, unreadOnly bool, page, perPage int) (*NotificationPage, error) {
	if err := access.Require(sess, access.PermNotificationsRead); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	items, total, err := s.repo.ListForUser(ctx, sess.UserID, unreadOnly, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	out := &NotificationPage{Items: make([]NotificationDTO, 0, len(items)), Total: total, Page: page, PerPage: perPage}
	for _, n := range items {
		out.Items = append(out.Items, NotificationToDTO(n))
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, sess access.Session) (int, error) {
	if err := access.Require(sess, access.PermNotificationsRead); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, sess.UserID)
}

// MarkRead marks ids (or everything when all is set) as read and tells the
// user's other peers. Ids belonging to other users are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, sess access.Session, ids []int64, all bool) (realtime.ReadPayload, error) {
	if err := access.Require(sess, access.PermNotificationsRead); err != nil {
		return realtime.ReadPayload{}, err
	}
	if !all && len(ids) == 0 {
		return realtime.ReadPayload{}, domain.Validation(domain.CodeValidation, "ids or all is required",
			domain.Issue{Field: "ids", Rule: "required_without", Message: "provide ids or set all"})
	}

	var payload realtime.ReadPayload
	if all {
		n, err := s.repo.MarkAllRead(ctx, sess.UserID)
		if err != nil {
			return payload, err
		}
		if n == 0 {
			return payload, nil
		}
		payload.All = true
	} else {
		changed, err := s.repo.MarkRead(ctx, sess.UserID, ids)
		if err != nil {
			return payload, err
		}
		if len(changed) == 0 {
			return payload, nil
		}
		payload.IDs = changed
	}
	s.notifier.Notify(sess.UserID, realtime.Envelope{Type: realtime.TypeNotificationsRead, Payload: payload})
	return payload, nil
}
