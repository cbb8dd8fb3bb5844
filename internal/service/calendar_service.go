package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/realtime"
)

const maxEventTitle = 200

type CalendarService struct {
	users    domain.UserRepository
	events   domain.CalendarRepository
	notifier realtime.Notifier
	log      *logrus.Entry
}

func NewCalendarService(users domain.UserRepository, events domain.CalendarRepository, notifier realtime.Notifier, log *logrus.Entry) *CalendarService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CalendarService{users: users, events: events, notifier: notifier, log: log.WithField("component", "calendar")}
}

type EventInput struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	AttendeeIDs []int64
}

// EventDetail is the client-facing event, also every calendar payload.
type EventDetail struct {
	*domain.CalendarEvent
	Attendees []*domain.Attendee `json:"attendees"`
}

func validateEvent(in EventInput) error {
	var issues []domain.Issue
	title := strings.TrimSpace(in.Title)
	if title == "" || len([]rune(title)) > maxEventTitle {
		issues = append(issues, domain.Issue{Field: "title", Rule: "len", Message: fmt.Sprintf("1 to %d characters", maxEventTitle)})
	}
	if in.StartsAt.IsZero() {
		issues = append(issues, domain.Issue{Field: "starts_at", Rule: "required", Message: "start time is required"})
	}
	if !in.EndsAt.After(in.StartsAt) {
		issues = append(issues, domain.Issue{Field: "ends_at", Rule: "gtfield", Message: "must be after starts_at"})
	}
	if len(issues) > 0 {
		return domain.Validation(domain.CodeValidation, "invalid event", issues...)
	}
	return nil
}

func (s *CalendarService) Create(ctx context.Context, sess access.Session, in EventInput) (*EventDetail, error) {
	if err := access.Require(sess, access.PermCalendarManage); err != nil {
		return nil, err
	}
	if err := validateEvent(in); err != nil {
		return nil, err
	}
	seen := map[int64]bool{sess.UserID: true}
	attendees := make([]int64, 0, len(in.AttendeeIDs))
	for _, id := range in.AttendeeIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := activeUser(ctx, s.users, id); err != nil {
			return nil, err
		}
		attendees = append(attendees, id)
	}

	e := &domain.CalendarEvent{
		OwnerID:     sess.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		Status:      domain.EventScheduled,
	}
	if err := s.events.Create(ctx, e, attendees); err != nil {
		return nil, err
	}
	return s.publish(ctx, e, realtime.TypeCalendarCreated)
}

// owned loads an event and checks the caller owns it.
func (s *CalendarService) owned(ctx context.Context, sess access.Session, eventID int64) (*domain.CalendarEvent, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, asNotFound(err, "event")
	}
	if e.OwnerID != sess.UserID {
		return nil, domain.Forbidden(domain.CodeForbidden, "only the organiser can change this event")
	}
	return e, nil
}

func (s *CalendarService) Update(ctx context.Context, sess access.Session, eventID int64, in EventInput) (*EventDetail, error) {
	if err := access.Require(sess, access.PermCalendarManage); err != nil {
		return nil, err
	}
	if err := validateEvent(in); err != nil {
		return nil, err
	}
	e, err := s.owned(ctx, sess, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status == domain.EventCancelled {
		return nil, domain.Conflict(domain.CodeEventCancelled, "event is cancelled")
	}
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.StartsAt = in.StartsAt.UTC()
	e.EndsAt = in.EndsAt.UTC()
	if err := s.events.Update(ctx, e); err != nil {
		return nil, asConflict(err, domain.CodeEventCancelled, "event is cancelled")
	}
	return s.publish(ctx, e, realtime.TypeCalendarUpdated)
}

func (s *CalendarService) Cancel(ctx context.Context, sess access.Session, eventID int64) (*EventDetail, error) {
	if err := access.Require(sess, access.PermCalendarManage); err != nil {
		return nil, err
	}
	e, err := s.owned(ctx, sess, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.events.SetStatus(ctx, e.ID, domain.EventScheduled, domain.EventCancelled); err != nil {
		return nil, asConflict(err, domain.CodeEventCancelled, "event is already cancelled")
	}
	e.Status = domain.EventCancelled
	return s.publish(ctx, e, realtime.TypeCalendarCancelled)
}

// RSVP records an attendee's answer.
func (s *CalendarService) RSVP(ctx context.Context, sess access.Session, eventID int64, rsvp domain.RSVP) (*EventDetail, error) {
	switch rsvp {
	case domain.RSVPAccepted, domain.RSVPDeclined, domain.RSVPTentative:
	default:
		return nil, domain.Validation(domain.CodeValidation, "invalid rsvp",
			domain.Issue{Field: "rsvp", Rule: "oneof", Message: "accepted declined tentative"})
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, asNotFound(err, "event")
	}
	if e.Status == domain.EventCancelled {
		return nil, domain.Conflict(domain.CodeEventCancelled, "event is cancelled")
	}
	err = s.events.SetRSVP(ctx, eventID, sess.UserID, rsvp)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Forbidden(domain.CodeForbidden, "you are not invited to this event")
	}
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, e, realtime.TypeCalendarRSVP)
}

func (s *CalendarService) ListMine(ctx context.Context, sess access.Session, from, to time.Time) ([]*domain.CalendarEvent, error) {
	if !to.After(from) {
		return nil, domain.Validation(domain.CodeValidation, "invalid range",
			domain.Issue{Field: "to", Rule: "gtfield", Message: "must be after from"})
	}
	events, err := s.events.ListForUser(ctx, sess.UserID, from, to)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.CalendarEvent{}
	}
	return events, nil
}

// publish sends the event to its organiser and every attendee.
func (s *CalendarService) publish(ctx context.Context, e *domain.CalendarEvent, eventType string) (*EventDetail, error) {
	attendees, err := s.events.ListAttendees(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if attendees == nil {
		attendees = []*domain.Attendee{}
	}
	detail := &EventDetail{CalendarEvent: e, Attendees: attendees}
	env := realtime.Envelope{Type: eventType, Payload: detail}
	s.notifier.Notify(e.OwnerID, env)
	for _, a := range attendees {
		if a.UserID != e.OwnerID {
			s.notifier.Notify(a.UserID, env)
		}
	}
	return detail, nil
}
