package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/service"
)

func TestSessionResolve(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "ala")
	admin := e.userWithRole(t, "root", "admin")
	odd := e.userWithRole(t, "dziwny", "nieznana")

	sess := e.session(t, u)
	assert.Equal(t, u.ID, sess.UserID)
	assert.True(t, access.HasPermission(sess, access.PermFriendsManage))
	assert.False(t, access.HasPermission(sess, access.PermChatAI))

	assert.True(t, access.Can(e.session(t, admin), access.PermUsersManage))

	oddSess := e.session(t, odd)
	assert.Empty(t, oddSess.Permissions)

	_, err := e.sessions.Resolve(e.ctx, 9999)
	requireCode(t, err, domain.KindUnauthorized, domain.CodeUnauthorized)
}

func TestDeactivateAndDelete(t *testing.T) {
	e := newEnv(t)
	u, other := e.user(t, "ala"), e.user(t, "bartek")
	admin := e.userWithRole(t, "root", "admin")

	me, err := e.users.Me(e.ctx, e.session(t, u))
	require.NoError(t, err)
	assert.Equal(t, "ala@example.com", me.Email)

	listed, err := e.users.List(e.ctx, e.session(t, u), 0, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	sess := e.session(t, u)
	require.NoError(t, e.users.Deactivate(e.ctx, sess))
	assert.Equal(t, []int64{u.ID}, e.dropped.ids)
	_, err = e.sessions.Resolve(e.ctx, u.ID)
	requireCode(t, err, domain.KindUnauthorized, domain.CodeUnauthorized)

	err = e.users.Delete(e.ctx, e.session(t, other), admin.ID)
	requireCode(t, err, domain.KindForbidden, domain.CodeForbidden)

	require.NoError(t, e.users.Delete(e.ctx, e.session(t, admin), u.ID))
	assert.Equal(t, []int64{u.ID, u.ID}, e.dropped.ids)
	_, err = e.sessions.Resolve(e.ctx, u.ID)
	requireCode(t, err, domain.KindUnauthorized, domain.CodeUnauthorized)

	err = e.users.Delete(e.ctx, e.session(t, admin), u.ID)
	requireCode(t, err, domain.KindNotFound, domain.CodeNotFound)

	require.NoError(t, e.users.Delete(e.ctx, e.session(t, other), other.ID))
}

func TestDeleteCascadesRelations(t *testing.T) {
	e := newEnv(t)
	a, b := e.user(t, "ala"), e.user(t, "bartek")
	e.befriend(t, a, b)
	td := e.team(t, b, "Zespół")
	e.join(t, td.ID, b, a)

	require.NoError(t, e.users.Delete(e.ctx, e.session(t, a), a.ID))

	edges, err := e.repos.Friends.ListBetween(e.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
	m, err := e.repos.Teams.GetMember(e.ctx, td.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDeleteOwnerRemovesTeamsAndTellsMembers(t *testing.T) {
	e := newEnv(t)
	owner, mem, other := e.user(t, "ola"), e.user(t, "marek"), e.user(t, "kuba")
	owned := e.team(t, owner, "Zespół")
	e.join(t, owned.ID, owner, mem)
	kept := e.team(t, other, "Inny")
	e.join(t, kept.ID, other, owner)

	require.NoError(t, e.users.Delete(e.ctx, e.session(t, owner), owner.ID))

	_, err := e.repos.Teams.GetByID(e.ctx, owned.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.repos.Teams.GetByID(e.ctx, kept.ID)
	require.NoError(t, err)

	var titles []string
	for _, n := range e.notificationsOf(t, mem) {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, service.TitleTeamDeleted)
	for _, n := range e.notificationsOf(t, other) {
		assert.NotEqual(t, service.TitleTeamDeleted, n.Title)
	}
}
