package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/realtime"
	"teamhub/internal/security"
	"teamhub/internal/service"
	"teamhub/internal/store"
	"teamhub/internal/store/sqlite"
)

type delivery struct {
	UserID int64
	Topic  string
	Env    realtime.Envelope
}

// recorder is a realtime.Notifier that keeps everything it is asked to send.
type recorder struct {
	mu   sync.Mutex
	sent []delivery
}

func (r *recorder) Notify(userID int64, env realtime.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{UserID: userID, Env: env})
}

func (r *recorder) NotifyTopic(topic string, env realtime.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{Topic: topic, Env: env})
}

func (r *recorder) to(userID int64, eventType string) []realtime.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Envelope
	for _, d := range r.sent {
		if d.Topic == "" && d.UserID == userID && d.Env.Type == eventType {
			out = append(out, d.Env)
		}
	}
	return out
}

func (r *recorder) topic(topic string) []realtime.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Envelope
	for _, d := range r.sent {
		if d.Topic == topic {
			out = append(out, d.Env)
		}
	}
	return out
}

type disconnects struct {
	mu  sync.Mutex
	ids []int64
}

func (d *disconnects) DisconnectUser(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, userID)
}

type env struct {
	ctx   context.Context
	repos *store.Repositories
	log   *logrus.Entry
	logs  *test.Hook

	sessions *service.SessionResolver

	notifyHub *recorder
	chatHub   *recorder
	calHub    *recorder
	dropped   *disconnects

	notes    *service.NotificationService
	users    *service.UserService
	friends  *service.FriendService
	teams    *service.TeamService
	invites  *service.InviteService
	chat     *service.ChatService
	calendar *service.CalendarService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))

	logger, hook := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	cipher, err := security.NewEncryptor([]byte("test encryption key"), nil)
	require.NoError(t, err)

	e := &env{
		ctx:       ctx,
		repos:     store.New(db, sqlite.Dialect{}),
		log:       log,
		logs:      hook,
		notifyHub: &recorder{},
		chatHub:   &recorder{},
		calHub:    &recorder{},
		dropped:   &disconnects{},
	}
	r := e.repos
	e.sessions = service.NewSessionResolver(r.Users, r.Roles)
	e.notes = service.NewNotificationService(r.Notifications, e.notifyHub, log)
	e.teams = service.NewTeamService(r.Users, r.Teams, e.notes, log)
	e.users = service.NewUserService(r.Users, e.teams, e.dropped, log)
	e.friends = service.NewFriendService(r.Users, r.Friends, e.notes, log)
	e.invites = service.NewInviteService(r.Users, r.Teams, r.Invites, e.notes, log)
	e.chat = service.NewChatService(service.ChatDeps{
		Users:    r.Users,
		Friends:  r.Friends,
		Teams:    r.Teams,
		Chat:     r.Chat,
		LLMKeys:  r.LLMKeys,
		Cipher:   cipher,
		Notifier: e.chatHub,
	}, log)
	e.calendar = service.NewCalendarService(r.Users, r.Calendar, e.calHub, log)
	return e
}

func (e *env) user(t *testing.T, name string) *domain.User {
	return e.userWithRole(t, name, access.RoleUser)
}

func (e *env) userWithRole(t *testing.T, name, role string) *domain.User {
	t.Helper()
	u := &domain.User{Email: name + "@example.com", DisplayName: name, HashedPassword: "x", Role: role}
	require.NoError(t, e.repos.Users.Create(e.ctx, u))
	return u
}

func (e *env) session(t *testing.T, u *domain.User) access.Session {
	t.Helper()
	s, err := e.sessions.Resolve(e.ctx, u.ID)
	require.NoError(t, err)
	return s
}

func (e *env) notificationsOf(t *testing.T, u *domain.User) []*domain.Notification {
	t.Helper()
	items, _, err := e.repos.Notifications.ListForUser(e.ctx, u.ID, false, 0, 100)
	require.NoError(t, err)
	return items
}

// befriend makes a and b accepted friends.
func (e *env) befriend(t *testing.T, a, b *domain.User) {
	t.Helper()
	fr, err := e.friends.Invite(e.ctx, e.session(t, a), b.ID)
	require.NoError(t, err)
	_, err = e.friends.Accept(e.ctx, e.session(t, b), fr.ID)
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, kind domain.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	require.Equal(t, kind, de.Kind, de.Error())
	require.Equal(t, code, de.Code, de.Error())
}
