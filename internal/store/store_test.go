package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/store"
	"teamhub/internal/store/sqlite"
)

func newRepos(t *testing.T) *store.Repositories {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db))
	// second run proves the migration is idempotent
	require.NoError(t, sqlite.Migrate(context.Background(), db))
	return store.New(db, sqlite.Dialect{})
}

func mkUser(t *testing.T, r *store.Repositories, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, DisplayName: email, HashedPassword: "x"}
	require.NoError(t, r.Users.Create(context.Background(), u))
	return u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	u := mkUser(t, r, "ala@example.com")
	assert.NotZero(t, u.ID)
	assert.Equal(t, access.RoleUser, u.Role)

	err := r.Users.Create(ctx, &domain.User{Email: "ala@example.com", DisplayName: "dup", HashedPassword: "x"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := r.Users.GetByEmail(ctx, "ala@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive())

	at := time.Now().UTC()
	require.NoError(t, r.Users.SetDeactivated(ctx, u.ID, &at))
	got, err = r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	require.NoError(t, r.Users.TouchLogin(ctx, u.ID, time.Now().UTC()))
	got, err = r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive())
	assert.NotNil(t, got.LastLoginAt)

	require.NoError(t, r.Users.Delete(ctx, u.ID))
	_, err = r.Users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.Users.Delete(ctx, u.ID), domain.ErrNotFound)
}

func TestRolesSeeded(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	admin, err := r.Roles.Get(ctx, access.RoleAdmin)
	require.NoError(t, err)
	assert.ElementsMatch(t, access.AllPermissions, admin.Permissions)

	guest, err := r.Roles.Get(ctx, access.RoleGuest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{access.PermChatUse, access.PermNotificationsRead}, guest.Permissions)

	all, err := r.Roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = r.Roles.Get(ctx, "root")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFriendActivePairIsUnique(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	a := mkUser(t, r, "a@x")
	b := mkUser(t, r, "b@x")

	first := &domain.FriendRequest{SenderID: a.ID, ReceiverID: b.ID, Status: domain.FriendPending}
	require.NoError(t, r.Friends.Create(ctx, first))

	// reverse direction is the same unordered pair
	err := r.Friends.Create(ctx, &domain.FriendRequest{SenderID: b.ID, ReceiverID: a.ID, Status: domain.FriendPending})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, r.Friends.UpdateStatus(ctx, first.ID, domain.FriendPending, domain.FriendDeclined))
	assert.ErrorIs(t, r.Friends.UpdateStatus(ctx, first.ID, domain.FriendPending, domain.FriendAccepted), domain.ErrConflict)

	// a declined edge no longer blocks a new request
	again := &domain.FriendRequest{SenderID: b.ID, ReceiverID: a.ID, Status: domain.FriendPending}
	require.NoError(t, r.Friends.Create(ctx, again))

	edges, err := r.Friends.ListBetween(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	active, err := r.Friends.ListForUser(ctx, a.ID, domain.FriendPending, domain.FriendAccepted)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, again.ID, active[0].ID)

	require.NoError(t, r.Friends.Overwrite(ctx, again.ID, a.ID, b.ID, domain.FriendBlocked, domain.FriendPending, domain.FriendAccepted))
	got, err := r.Friends.GetByID(ctx, again.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FriendBlocked, got.Status)
	assert.Equal(t, a.ID, got.SenderID)

	assert.ErrorIs(t, r.Friends.DeleteWithStatus(ctx, again.ID, domain.FriendAccepted), domain.ErrConflict)
	require.NoError(t, r.Friends.DeleteWithStatus(ctx, again.ID, domain.FriendBlocked))
}

func TestTeamsAndInvites(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	owner := mkUser(t, r, "owner@x")
	guest := mkUser(t, r, "guest@x")

	slug := "core"
	team := &domain.Team{Name: "Core", Slug: &slug, OwnerID: owner.ID}
	require.NoError(t, r.Teams.Create(ctx, team))

	dup := &domain.Team{Name: "Other", Slug: &slug, OwnerID: owner.ID}
	assert.ErrorIs(t, r.Teams.Create(ctx, dup), domain.ErrConflict)

	m, err := r.Teams.GetMember(ctx, team.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, domain.TeamOwner, m.Role)

	none, err := r.Teams.GetMember(ctx, team.ID, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	inv := &domain.TeamInvite{TeamID: team.ID, InviterID: owner.ID, InviteeID: guest.ID, Status: domain.InvitePending}
	require.NoError(t, r.Invites.Create(ctx, inv))
	err = r.Invites.Create(ctx, &domain.TeamInvite{TeamID: team.ID, InviterID: owner.ID, InviteeID: guest.ID, Status: domain.InvitePending})
	assert.ErrorIs(t, err, domain.ErrConflict)

	pending, err := r.Invites.FindPending(ctx, team.ID, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)

	member, err := r.Invites.Accept(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, member.UserID)
	assert.Equal(t, domain.TeamMember, member.Role)

	_, err = r.Invites.Accept(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	members, err := r.Teams.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	owners, err := r.Teams.CountRole(ctx, team.ID, domain.TeamOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, owners)

	require.NoError(t, r.Teams.UpdateMemberRole(ctx, team.ID, guest.ID, domain.TeamAdmin))
	teams, err := r.Teams.ListForUser(ctx, guest.ID)
	require.NoError(t, err)
	assert.Len(t, teams, 1)

	require.NoError(t, r.Teams.Delete(ctx, team.ID))
	members, err = r.Teams.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestChatThreads(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	a := mkUser(t, r, "a@x")
	b := mkUser(t, r, "b@x")
	c := mkUser(t, r, "c@x")

	key := "1:2"
	th, created, err := r.Chat.CreateThread(ctx, &domain.ChatThread{Type: domain.ThreadDM, DMKey: &key, CreatedBy: &a.ID}, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := r.Chat.CreateThread(ctx, &domain.ChatThread{Type: domain.ThreadDM, DMKey: &key, CreatedBy: &b.ID}, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, th.ID, again.ID)

	ok, err := r.Chat.IsParticipant(ctx, th.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Chat.IsParticipant(ctx, th.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// team threads follow current membership
	team := &domain.Team{Name: "T", OwnerID: a.ID}
	require.NoError(t, r.Teams.Create(ctx, team))
	tt, _, err := r.Chat.CreateThread(ctx, &domain.ChatThread{Type: domain.ThreadTeam, TeamID: &team.ID, Title: "general", CreatedBy: &a.ID}, []int64{a.ID})
	require.NoError(t, err)
	inv := &domain.TeamInvite{TeamID: team.ID, InviterID: a.ID, InviteeID: c.ID, Status: domain.InvitePending}
	require.NoError(t, r.Invites.Create(ctx, inv))
	_, err = r.Invites.Accept(ctx, inv.ID)
	require.NoError(t, err)

	ids, err := r.Chat.ListParticipantIDs(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, c.ID}, ids)

	require.NoError(t, r.Teams.RemoveMember(ctx, team.ID, c.ID))
	ok, err = r.Chat.IsParticipant(ctx, tt.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Chat.CreateMessage(ctx, &domain.ChatMessage{ThreadID: th.ID, SenderID: &a.ID, Type: domain.MessageText, Content: "m"}))
	}
	page, err := r.Chat.ListMessages(ctx, th.ID, 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Less(t, page[0].ID, page[2].ID)

	older, err := r.Chat.ListMessages(ctx, th.ID, page[0].ID, 10)
	require.NoError(t, err)
	assert.Len(t, older, 2)

	threads, err := r.Chat.ListThreadsForUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, th.ID, threads[0].ID)
	assert.NotNil(t, threads[0].LastMessageAt)
}

func TestAIThreadOnePerUser(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	a := mkUser(t, r, "a@x")

	first, created, err := r.Chat.CreateThread(ctx, &domain.ChatThread{Type: domain.ThreadAI, AIOwnerID: &a.ID, CreatedBy: &a.ID}, []int64{a.ID})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := r.Chat.CreateThread(ctx, &domain.ChatThread{Type: domain.ThreadAI, AIOwnerID: &a.ID, CreatedBy: &a.ID}, []int64{a.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	found, err := r.Chat.FindAIThread(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestTeamThreadSurvivesCreatorDeletion(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	owner := mkUser(t, r, "owner@x")
	creator := mkUser(t, r, "creator@x")

	team := &domain.Team{Name: "T", OwnerID: owner.ID}
	require.NoError(t, r.Teams.Create(ctx, team))
	inv := &domain.TeamInvite{TeamID: team.ID, InviterID: owner.ID, InviteeID: creator.ID, Status: domain.InvitePending}
	require.NoError(t, r.Invites.Create(ctx, inv))
	_, err := r.Invites.Accept(ctx, inv.ID)
	require.NoError(t, err)

	th, _, err := r.Chat.CreateThread(ctx, &domain.ChatThread{Type: domain.ThreadTeam, TeamID: &team.ID, Title: "general", CreatedBy: &creator.ID}, []int64{creator.ID})
	require.NoError(t, err)
	require.NoError(t, r.Chat.CreateMessage(ctx, &domain.ChatMessage{ThreadID: th.ID, SenderID: &owner.ID, Type: domain.MessageText, Content: "kept"}))

	require.NoError(t, r.Users.Delete(ctx, creator.ID))

	threads, err := r.Chat.ListThreadsForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, th.ID, threads[0].ID)
	assert.Nil(t, threads[0].CreatedBy)

	msgs, err := r.Chat.ListMessages(ctx, th.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	a := mkUser(t, r, "a@x")
	b := mkUser(t, r, "b@x")

	var ids []int64
	for i := 0; i < 3; i++ {
		n := &domain.Notification{UserID: a.ID, Type: domain.NotificationInfo, Title: "t", Message: "m"}
		require.NoError(t, r.Notifications.Create(ctx, n))
		ids = append(ids, n.ID)
	}
	other := &domain.Notification{UserID: b.ID, Type: domain.NotificationInfo, Title: "t", Message: "m"}
	require.NoError(t, r.Notifications.Create(ctx, other))

	changed, err := r.Notifications.MarkRead(ctx, a.ID, []int64{ids[0], other.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0]}, changed)

	changed, err = r.Notifications.MarkRead(ctx, a.ID, []int64{ids[0]})
	require.NoError(t, err)
	assert.Empty(t, changed)

	unread, err := r.Notifications.UnreadCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	page, total, err := r.Notifications.ListForUser(ctx, a.ID, true, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)

	n, err := r.Notifications.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCalendar(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	owner := mkUser(t, r, "o@x")
	guest := mkUser(t, r, "g@x")

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e := &domain.CalendarEvent{OwnerID: owner.ID, Title: "Standup", StartsAt: start, EndsAt: start.Add(30 * time.Minute)}
	require.NoError(t, r.Calendar.Create(ctx, e, []int64{guest.ID}))

	attendees, err := r.Calendar.ListAttendees(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	assert.Equal(t, domain.RSVPPending, attendees[0].RSVP)

	require.NoError(t, r.Calendar.SetRSVP(ctx, e.ID, guest.ID, domain.RSVPAccepted))
	assert.ErrorIs(t, r.Calendar.SetRSVP(ctx, e.ID, owner.ID, domain.RSVPAccepted), domain.ErrNotFound)

	events, err := r.Calendar.ListForUser(ctx, guest.ID, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 1)
	events, err = r.Calendar.ListForUser(ctx, guest.ID, start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, r.Calendar.SetStatus(ctx, e.ID, domain.EventScheduled, domain.EventCancelled))
	assert.ErrorIs(t, r.Calendar.SetStatus(ctx, e.ID, domain.EventScheduled, domain.EventCancelled), domain.ErrConflict)
	assert.ErrorIs(t, r.Calendar.Update(ctx, e), domain.ErrConflict)
}

func TestLLMKeys(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	a := mkUser(t, r, "a@x")

	require.NoError(t, r.LLMKeys.Upsert(ctx, &domain.LLMKey{UserID: a.ID, Provider: "openai", EncryptedKey: "v1"}))
	require.NoError(t, r.LLMKeys.Upsert(ctx, &domain.LLMKey{UserID: a.ID, Provider: "openai", EncryptedKey: "v2"}))
	require.NoError(t, r.LLMKeys.Upsert(ctx, &domain.LLMKey{UserID: a.ID, Provider: "anthropic", EncryptedKey: "v1"}))

	providers, err := r.LLMKeys.ListProviders(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, providers)

	require.NoError(t, r.LLMKeys.Delete(ctx, a.ID, "openai"))
	assert.ErrorIs(t, r.LLMKeys.Delete(ctx, a.ID, "openai"), domain.ErrNotFound)
}
