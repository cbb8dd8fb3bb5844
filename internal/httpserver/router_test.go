package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/httpserver"
	"teamhub/internal/realtime"
	"teamhub/internal/security"
	"teamhub/internal/service"
	"teamhub/internal/store"
	"teamhub/internal/store/sqlite"
	"teamhub/internal/ws"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Issues  []struct {
		Field string `json:"field"`
		Rule  string `json:"rule"`
	} `json:"issues"`
}

type reply struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  *apiError       `json:"error"`
	Raw    map[string]any  `json:"-"`
}

type api struct {
	t    *testing.T
	srv  *httptest.Server
	hubs *realtime.Hubs
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))

	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	cipher, err := security.NewEncryptor([]byte("test encryption key"), nil)
	require.NoError(t, err)
	tokens := security.NewTokenService("test-secret", time.Hour)
	hubs := realtime.NewHubs(log)
	repos := store.New(db, sqlite.Dialect{})

	sessions := service.NewSessionResolver(repos.Users, repos.Roles)
	notes := service.NewNotificationService(repos.Notifications, hubs.Notifications, log)
	chat := service.NewChatService(service.ChatDeps{
		Users:    repos.Users,
		Friends:  repos.Friends,
		Teams:    repos.Teams,
		Chat:     repos.Chat,
		LLMKeys:  repos.LLMKeys,
		Cipher:   cipher,
		Notifier: hubs.Chat,
	}, log)
	teams := service.NewTeamService(repos.Users, repos.Teams, notes, log)
	svc := httpserver.Services{
		Sessions:      sessions,
		Auth:          service.NewAuthService(repos.Users, tokens, security.NewPasswordHasher(4), log),
		Users:         service.NewUserService(repos.Users, teams, hubs, log),
		Friends:       service.NewFriendService(repos.Users, repos.Friends, notes, log),
		Teams:         teams,
		Invites:       service.NewInviteService(repos.Users, repos.Teams, repos.Invites, notes, log),
		Chat:          chat,
		Notifications: notes,
		Calendar:      service.NewCalendarService(repos.Users, repos.Calendar, hubs.Calendar, log),
	}
	sockets := ws.NewHandler(hubs, tokens, sessions, chat, ws.Config{
		AllowedOrigins: []string{"http://localhost:3000"},
		WriteTimeout:   time.Second,
		PingInterval:   time.Minute,
	}, log)

	srv := httptest.NewServer(httpserver.NewRouter(httpserver.Options{
		AppName:     "teamhub",
		CORSOrigins: []string{"http://localhost:3000"},
		DB:          db,
		Tokens:      tokens,
		Sockets:     sockets,
		Log:         log,
	}, svc))
	t.Cleanup(srv.Close)

	return &api{t: t, srv: srv, hubs: hubs}
}

func (a *api) do(method, path, token string, body any) reply {
	a.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)

	out := reply{Status: resp.StatusCode}
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &out), string(raw))
		require.NoError(a.t, json.Unmarshal(raw, &out.Raw), string(raw))
	}
	return out
}

func into[T any](t *testing.T, r reply) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v), string(r.Data))
	return v
}

type account struct {
	ID    int64
	Token string
}

func (a *api) register(email, name string) account {
	a.t.Helper()
	r := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":        email,
		"display_name": name,
		"password":     "password123",
	})
	require.Equal(a.t, http.StatusCreated, r.Status)
	tok := into[service.TokenResponse](a.t, r)
	require.NotEmpty(a.t, tok.AccessToken)
	return account{ID: tok.User.ID, Token: tok.AccessToken}
}

func (a *api) befriend(x, y account) {
	a.t.Helper()
	r := a.do(http.MethodPost, "/api/friends/requests", x.Token, map[string]int64{"user_id": y.ID})
	require.Equal(a.t, http.StatusCreated, r.Status)
	req := into[struct {
		ID int64 `json:"id"`
	}](a.t, r)
	r = a.do(http.MethodPost, "/api/friends/requests/"+strconv.FormatInt(req.ID, 10)+"/accept", y.Token, nil)
	require.Equal(a.t, http.StatusOK, r.Status)
}

func (a *api) dial(domain, token string) *websocket.Conn {
	a.t.Helper()
	u := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/api/ws/" + domain
	conn, resp, err := websocket.DefaultDialer.Dial(u, http.Header{"Authorization": {"Bearer " + token}})
	require.NoError(a.t, err)
	resp.Body.Close()
	a.t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env map[string]any
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHealthAndDocs(t *testing.T) {
	a := newAPI(t)

	r := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, "healthy", r.Raw["status"])

	resp, err := a.srv.Client().Get(a.srv.URL + "/docs/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterLoginMe(t *testing.T) {
	a := newAPI(t)
	alice := a.register("Alice@Example.com", "Alice")

	r := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "display_name": "Other", "password": "password123",
	})
	require.Equal(t, http.StatusConflict, r.Status)
	assert.Equal(t, "email_taken", r.Error.Code)

	r = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "nope", "display_name": "", "password": "x",
	})
	require.Equal(t, http.StatusUnprocessableEntity, r.Status)
	assert.Equal(t, "validation_error", r.Error.Code)
	assert.Len(t, r.Error.Issues, 3)

	r = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "invalid_credentials", r.Error.Code)

	r = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusUnprocessableEntity, r.Status)
	require.Len(t, r.Error.Issues, 1)
	assert.Equal(t, "password", r.Error.Issues[0].Field)
	assert.Equal(t, "required", r.Error.Issues[0].Rule)

	r = a.do(http.MethodGet, "/api/auth/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	me := into[struct {
		ID          int64    `json:"id"`
		Email       string   `json:"email"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}](t, r)
	assert.Equal(t, alice.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, "user", me.Role)
	assert.Contains(t, me.Permissions, "friends.manage")
	assert.NotContains(t, me.Permissions, "users.manage")
	assert.Nil(t, r.Raw["data"].(map[string]any)["hashed_password"])

	r = a.do(http.MethodPost, "/api/auth/logout", alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, r.Status)
}

func TestUnauthenticatedRequests(t *testing.T) {
	a := newAPI(t)

	r := a.do(http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "unauthorized", r.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, r.Error.Status)

	r = a.do(http.MethodGet, "/api/friends", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}

func TestErrorEnvelopes(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice@example.com", "Alice")

	r := a.do(http.MethodPost, "/api/friends/requests", alice.Token, map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, r.Status)
	require.Len(t, r.Error.Issues, 1)
	assert.Equal(t, "user_id", r.Error.Issues[0].Field)

	r = a.do(http.MethodPost, "/api/friends/requests", alice.Token, "{not json")
	require.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "validation_error", r.Error.Code)

	r = a.do(http.MethodPost, "/api/friends/requests/abc/accept", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = a.do(http.MethodGet, "/api/teams/999", alice.Token, nil)
	require.Equal(t, http.StatusNotFound, r.Status)
	assert.Equal(t, "not_found", r.Error.Code)

	r = a.do(http.MethodPost, "/api/friends/requests", alice.Token, map[string]int64{"user_id": alice.ID})
	require.Equal(t, http.StatusUnprocessableEntity, r.Status)
	assert.Equal(t, "self_action", r.Error.Code)
}

func TestFriendsAndChatOverHTTP(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice@example.com", "Alice")
	bob := a.register("bob@example.com", "Bob")

	r := a.do(http.MethodPost, "/api/chat/threads/dm", alice.Token, map[string]int64{"user_id": bob.ID})
	require.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, "not_friends", r.Error.Code)

	a.befriend(alice, bob)

	r = a.do(http.MethodGet, "/api/friends", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	overview := into[service.FriendOverview](t, r)
	require.Len(t, overview.Friends, 1)
	assert.Equal(t, alice.ID, overview.Friends[0].User.ID)

	r = a.do(http.MethodPost, "/api/chat/threads/dm", alice.Token, map[string]int64{"user_id": bob.ID})
	require.Equal(t, http.StatusOK, r.Status)
	thread := into[struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}](t, r)
	assert.Equal(t, "dm", thread.Type)

	again := a.do(http.MethodPost, "/api/chat/threads/dm", bob.Token, map[string]int64{"user_id": alice.ID})
	require.Equal(t, http.StatusOK, again.Status)
	assert.Equal(t, thread.ID, into[struct {
		ID int64 `json:"id"`
	}](t, again).ID)

	path := "/api/chat/threads/" + strconv.FormatInt(thread.ID, 10) + "/messages"
	r = a.do(http.MethodPost, path, alice.Token, map[string]any{"content": "hej", "metadata": map[string]string{"k": "v"}})
	require.Equal(t, http.StatusCreated, r.Status)

	r = a.do(http.MethodPost, path, alice.Token, map[string]any{"content": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, r.Status)

	r = a.do(http.MethodGet, path+"?limit=10", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	msgs := into[[]service.MessageDTO](t, r)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hej", msgs[0].Content)
	assert.Equal(t, &alice.ID, msgs[0].SenderID)

	r = a.do(http.MethodGet, "/api/notifications/unread-count", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Positive(t, into[struct {
		Count int `json:"count"`
	}](t, r).Count)

	r = a.do(http.MethodPost, "/api/notifications/read", bob.Token, map[string]bool{"all": true})
	require.Equal(t, http.StatusOK, r.Status)
	r = a.do(http.MethodGet, "/api/notifications?unread=true", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Empty(t, into[service.NotificationPage](t, r).Items)
}

func TestTeamsOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner := a.register("owner@example.com", "Owner")
	bob := a.register("bob@example.com", "Bob")

	r := a.do(http.MethodPost, "/api/teams", owner.Token, map[string]string{"name": "Kraków Team"})
	require.Equal(t, http.StatusCreated, r.Status)
	team := into[struct {
		ID     int64  `json:"id"`
		Slug   string `json:"slug"`
		MyRole string `json:"my_role"`
	}](t, r)
	assert.Equal(t, "owner", team.MyRole)
	assert.True(t, strings.HasPrefix(team.Slug, "krak-w-team-"), team.Slug)

	base := "/api/teams/" + strconv.FormatInt(team.ID, 10)

	r = a.do(http.MethodGet, base, bob.Token, nil)
	require.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, "not_member", r.Error.Code)

	r = a.do(http.MethodPost, base+"/invites", owner.Token, map[string]int64{"user_id": bob.ID})
	require.Equal(t, http.StatusCreated, r.Status)

	r = a.do(http.MethodGet, "/api/team-invites", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	invites := into[[]service.InviteDetail](t, r)
	require.Len(t, invites, 1)
	assert.Equal(t, "Owner", invites[0].Inviter.DisplayName)

	r = a.do(http.MethodPost, "/api/team-invites/"+strconv.FormatInt(invites[0].ID, 10)+"/accept", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)

	r = a.do(http.MethodPost, "/api/team-invites/"+strconv.FormatInt(invites[0].ID, 10)+"/accept", bob.Token, nil)
	require.Equal(t, http.StatusConflict, r.Status)
	assert.Equal(t, "invite_not_pending", r.Error.Code)

	r = a.do(http.MethodGet, base+"/members", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Len(t, into[[]service.MemberDetail](t, r), 2)

	memberPath := base + "/members/" + strconv.FormatInt(bob.ID, 10)
	r = a.do(http.MethodPatch, memberPath, owner.Token, map[string]string{"role": "boss"})
	require.Equal(t, http.StatusUnprocessableEntity, r.Status)
	assert.Equal(t, "oneof", r.Error.Issues[0].Rule)

	r = a.do(http.MethodPatch, memberPath, owner.Token, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, r.Status)

	r = a.do(http.MethodPost, base+"/threads", bob.Token, map[string]string{"title": "general"})
	require.Equal(t, http.StatusCreated, r.Status)

	r = a.do(http.MethodDelete, memberPath, owner.Token, nil)
	require.Equal(t, http.StatusNoContent, r.Status)

	r = a.do(http.MethodGet, "/api/chat/threads", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Empty(t, into[[]json.RawMessage](t, r))
}

func TestCalendarOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner := a.register("owner@example.com", "Owner")
	bob := a.register("bob@example.com", "Bob")

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	r := a.do(http.MethodPost, "/api/calendar/events", owner.Token, map[string]any{
		"title":        "Standup",
		"starts_at":    start,
		"ends_at":      start.Add(15 * time.Minute),
		"attendee_ids": []int64{bob.ID},
	})
	require.Equal(t, http.StatusCreated, r.Status)
	ev := into[service.EventDetail](t, r)
	require.Len(t, ev.Attendees, 1)

	r = a.do(http.MethodPost, "/api/calendar/events", owner.Token, map[string]any{
		"title": "Backwards", "starts_at": start, "ends_at": start.Add(-time.Minute),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, r.Status)

	evPath := "/api/calendar/events/" + strconv.FormatInt(ev.ID, 10)
	r = a.do(http.MethodPost, evPath+"/rsvp", bob.Token, map[string]string{"rsvp": "maybe"})
	assert.Equal(t, http.StatusUnprocessableEntity, r.Status)
	r = a.do(http.MethodPost, evPath+"/rsvp", bob.Token, map[string]string{"rsvp": "accepted"})
	require.Equal(t, http.StatusOK, r.Status)

	r = a.do(http.MethodGet, "/api/calendar/events", bob.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Len(t, into[[]json.RawMessage](t, r), 1)

	r = a.do(http.MethodGet, "/api/calendar/events?from=yesterday", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = a.do(http.MethodPost, evPath+"/cancel", owner.Token, nil)
	require.Equal(t, http.StatusOK, r.Status)
	r = a.do(http.MethodPost, evPath+"/rsvp", bob.Token, map[string]string{"rsvp": "declined"})
	require.Equal(t, http.StatusConflict, r.Status)
	assert.Equal(t, "event_cancelled", r.Error.Code)
}

func TestDeactivateRevokesAccessUntilLogin(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice@example.com", "Alice")

	r := a.do(http.MethodPost, "/api/users/me/deactivate", alice.Token, nil)
	require.Equal(t, http.StatusNoContent, r.Status)

	r = a.do(http.MethodGet, "/api/auth/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, r.Status)

	r = a.do(http.MethodGet, "/api/auth/me", alice.Token, nil)
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestDeleteSelfDisconnectsSockets(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice@example.com", "Alice")

	conn := a.dial(realtime.DomainNotifications, alice.Token)
	require.Eventually(t, func() bool { return a.hubs.Notifications.Online(alice.ID) }, time.Second, 5*time.Millisecond)

	r := a.do(http.MethodDelete, "/api/users/"+strconv.FormatInt(alice.ID, 10), alice.Token, nil)
	require.Equal(t, http.StatusNoContent, r.Status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.False(t, a.hubs.Notifications.Online(alice.ID))

	r = a.do(http.MethodGet, "/api/auth/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}

func TestNotificationReachesOpenSocket(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice@example.com", "Alice")
	bob := a.register("bob@example.com", "Bob")

	conn := a.dial(realtime.DomainNotifications, alice.Token)
	require.Eventually(t, func() bool { return a.hubs.Notifications.Online(alice.ID) }, time.Second, 5*time.Millisecond)

	r := a.do(http.MethodPost, "/api/friends/requests", bob.Token, map[string]int64{"user_id": alice.ID})
	require.Equal(t, http.StatusCreated, r.Status)

	env := readEnvelope(t, conn)
	assert.Equal(t, realtime.TypeNotificationNew, env["type"])
	payload, ok := env["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, payload["read"])
}
