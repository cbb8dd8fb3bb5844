package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamhub/internal/domain"
)

type CalendarRepo struct {
	db *sql.DB
	c  conn
}

func NewCalendarRepo(db *sql.DB, d Dialect) *CalendarRepo {
	return &CalendarRepo{db: db, c: conn{q: db, d: d}}
}

var _ domain.CalendarRepository = (*CalendarRepo)(nil)

const eventColumns = `e.id, e.owner_id, e.title, e.description, e.starts_at, e.ends_at, e.status, e.created_at, e.updated_at`

func (r *CalendarRepo) Create(ctx context.Context, e *domain.CalendarEvent, attendeeIDs []int64) error {
	ts := now()
	e.CreatedAt, e.UpdatedAt = ts, ts
	if e.Status == "" {
		e.Status = domain.EventScheduled
	}
	return withTx(ctx, r.db, r.c.d, func(c conn) error {
		if err := c.queryRow(ctx, `
			INSERT INTO calendar_events (owner_id, title, description, starts_at, ends_at, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`, e.OwnerID, e.Title, e.Description, e.StartsAt.UTC(), e.EndsAt.UTC(), e.Status, ts, ts).Scan(&e.ID); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		for _, uid := range attendeeIDs {
			if _, err := c.exec(ctx, `
				INSERT INTO calendar_attendees (event_id, user_id, rsvp)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING
			`, e.ID, uid, domain.RSVPPending); err != nil {
				return fmt.Errorf("insert attendee %d: %w", uid, err)
			}
		}
		return nil
	})
}

func (r *CalendarRepo) GetByID(ctx context.Context, id int64) (*domain.CalendarEvent, error) {
	e, err := scanEvent(r.c.queryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events e WHERE e.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "get event")
	}
	return e, nil
}

// Update rewrites the editable fields of a scheduled event.
func (r *CalendarRepo) Update(ctx context.Context, e *domain.CalendarEvent) error {
	e.UpdatedAt = now()
	res, err := r.c.exec(ctx, `
		UPDATE calendar_events
		SET title = ?, description = ?, starts_at = ?, ends_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, e.Title, e.Description, e.StartsAt.UTC(), e.EndsAt.UTC(), e.UpdatedAt, e.ID, domain.EventScheduled)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(res, "update event")
}

func (r *CalendarRepo) SetStatus(ctx context.Context, id int64, from, to domain.EventStatus) error {
	res, err := r.c.exec(ctx, `
		UPDATE calendar_events SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, to, now(), id, from)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	return requireRow(res, "set event status")
}

func (r *CalendarRepo) ListAttendees(ctx context.Context, eventID int64) ([]*domain.Attendee, error) {
	rows, err := r.c.query(ctx, `
		SELECT event_id, user_id, rsvp FROM calendar_attendees WHERE event_id = ? ORDER BY user_id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var res []*domain.Attendee
	for rows.Next() {
		a := &domain.Attendee{}
		if err := rows.Scan(&a.EventID, &a.UserID, &a.RSVP); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r *CalendarRepo) SetRSVP(ctx context.Context, eventID, userID int64, rsvp domain.RSVP) error {
	res, err := r.c.exec(ctx, `
		UPDATE calendar_attendees SET rsvp = ? WHERE event_id = ? AND user_id = ?
	`, rsvp, eventID, userID)
	if err != nil {
		return fmt.Errorf("set rsvp: %w", err)
	}
	return requireFound(res, "set rsvp")
}

// ListForUser returns events owned or attended by userID overlapping
// [from, to), ordered by start.
func (r *CalendarRepo) ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]*domain.CalendarEvent, error) {
	rows, err := r.c.query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events e
		WHERE (e.owner_id = ? OR EXISTS (
			SELECT 1 FROM calendar_attendees a WHERE a.event_id = e.id AND a.user_id = ?
		))
		AND e.starts_at < ? AND e.ends_at > ?
		ORDER BY e.starts_at ASC, e.id ASC
	`, userID, userID, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var res []*domain.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func scanEvent(s rowScanner) (*domain.CalendarEvent, error) {
	e := &domain.CalendarEvent{}
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return e, nil
}
