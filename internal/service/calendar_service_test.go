package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/domain"
	"teamhub/internal/realtime"
	"teamhub/internal/service"
)

func TestCalendarLifecycle(t *testing.T) {
	e := newEnv(t)
	owner, guest, stranger := e.user(t, "ola"), e.user(t, "gosia"), e.user(t, "obcy")
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := e.calendar.Create(e.ctx, e.session(t, owner), service.EventInput{Title: "x", StartsAt: start, EndsAt: start})
	requireCode(t, err, domain.KindValidation, domain.CodeValidation)
	_, err = e.calendar.Create(e.ctx, e.session(t, owner), service.EventInput{
		Title: "x", StartsAt: start, EndsAt: start.Add(time.Hour), AttendeeIDs: []int64{9999},
	})
	requireCode(t, err, domain.KindNotFound, domain.CodeNotFound)

	ev, err := e.calendar.Create(e.ctx, e.session(t, owner), service.EventInput{
		Title:       "Planowanie",
		StartsAt:    start,
		EndsAt:      start.Add(time.Hour),
		AttendeeIDs: []int64{guest.ID, guest.ID, owner.ID},
	})
	require.NoError(t, err)
	require.Len(t, ev.Attendees, 1)
	assert.Equal(t, domain.RSVPPending, ev.Attendees[0].RSVP)
	assert.Len(t, e.calHub.to(owner.ID, realtime.TypeCalendarCreated), 1)
	assert.Len(t, e.calHub.to(guest.ID, realtime.TypeCalendarCreated), 1)

	_, err = e.calendar.RSVP(e.ctx, e.session(t, stranger), ev.ID, domain.RSVPAccepted)
	requireCode(t, err, domain.KindForbidden, domain.CodeForbidden)
	_, err = e.calendar.RSVP(e.ctx, e.session(t, guest), ev.ID, domain.RSVPPending)
	requireCode(t, err, domain.KindValidation, domain.CodeValidation)
	updated, err := e.calendar.RSVP(e.ctx, e.session(t, guest), ev.ID, domain.RSVPAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPAccepted, updated.Attendees[0].RSVP)
	assert.Len(t, e.calHub.to(owner.ID, realtime.TypeCalendarRSVP), 1)

	_, err = e.calendar.Update(e.ctx, e.session(t, guest), ev.ID, service.EventInput{
		Title: "przejęte", StartsAt: start, EndsAt: start.Add(time.Hour),
	})
	requireCode(t, err, domain.KindForbidden, domain.CodeForbidden)
	moved, err := e.calendar.Update(e.ctx, e.session(t, owner), ev.ID, service.EventInput{
		Title: "Planowanie Q2", StartsAt: start.Add(24 * time.Hour), EndsAt: start.Add(25 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Planowanie Q2", moved.Title)
	assert.Len(t, e.calHub.to(guest.ID, realtime.TypeCalendarUpdated), 1)

	list, err := e.calendar.ListMine(e.ctx, e.session(t, guest), start, start.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = e.calendar.ListMine(e.ctx, e.session(t, stranger), start, start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, list)

	cancelled, err := e.calendar.Cancel(e.ctx, e.session(t, owner), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCancelled, cancelled.Status)
	assert.Len(t, e.calHub.to(guest.ID, realtime.TypeCalendarCancelled), 1)

	_, err = e.calendar.Cancel(e.ctx, e.session(t, owner), ev.ID)
	requireCode(t, err, domain.KindConflict, domain.CodeEventCancelled)
	_, err = e.calendar.Update(e.ctx, e.session(t, owner), ev.ID, service.EventInput{
		Title: "x", StartsAt: start, EndsAt: start.Add(time.Hour),
	})
	requireCode(t, err, domain.KindConflict, domain.CodeEventCancelled)
	_, err = e.calendar.RSVP(e.ctx, e.session(t, guest), ev.ID, domain.RSVPDeclined)
	requireCode(t, err, domain.KindConflict, domain.CodeEventCancelled)
}

func TestGuestCannotCreateEvents(t *testing.T) {
	e := newEnv(t)
	g := e.userWithRole(t, "gosc", "guest")
	start := time.Now()
	_, err := e.calendar.Create(e.ctx, e.session(t, g), service.EventInput{Title: "x", StartsAt: start, EndsAt: start.Add(time.Hour)})
	requireCode(t, err, domain.KindForbidden, domain.CodeForbidden)
}
