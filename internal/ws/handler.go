// Package ws upgrades authenticated HTTP requests into realtime peers of one
// event domain.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/realtime"
	"teamhub/internal/security"
)

// Inbound message types.
const (
	TypeThreadSubscribe    = "thread.subscribe"
	TypeThreadUnsubscribe  = "thread.unsubscribe"
	TypeThreadSubscribed   = "thread.subscribed"
	TypeThreadUnsubscribed = "thread.unsubscribed"
	TypePing               = "ping"
	TypePong               = "pong"
)

// SessionResolver builds the caller's session from a token subject.
type SessionResolver interface {
	Resolve(ctx context.Context, userID int64) (access.Session, error)
}

// ThreadGuard decides whether a user may follow a chat thread.
type ThreadGuard interface {
	RequireParticipant(ctx context.Context, userID, threadID int64) error
}

type Config struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

type Handler struct {
	hubs     *realtime.Hubs
	tokens   *security.TokenService
	sessions SessionResolver
	threads  ThreadGuard
	log      *logrus.Entry
	validate *validator.Validate

	checkOrigin  func(r *http.Request) bool
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewHandler(hubs *realtime.Hubs, tokens *security.TokenService, sessions SessionResolver, threads ThreadGuard, cfg Config, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	checkOrigin := makeCheckOrigin(cfg.AllowedOrigins)
	return &Handler{
		hubs:         hubs,
		tokens:       tokens,
		sessions:     sessions,
		threads:      threads,
		log:          log.WithField("component", "ws"),
		validate:     validator.New(),
		checkOrigin:  checkOrigin,
		upgrader:     websocket.Upgrader{CheckOrigin: checkOrigin, Subprotocols: []string{"bearer"}},
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
	}
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			// non-browser clients send no Origin
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		_, ok := allowed[u.Scheme+"://"+u.Host]
		return ok
	}
}

// tokenFromRequest reads the bearer token from the Authorization header or
// from a "bearer, <token>" subprotocol list, which is all browsers can send.
func tokenFromRequest(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token, true
		}
	}

	if protocolHeader := r.Header.Get("Sec-WebSocket-Protocol"); protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1], true
		}
	}
	return "", false
}

// ServeHTTP handles GET /api/ws/{domain}. The session is resolved before
// the upgrade, so a rejected caller never becomes a peer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	reg := h.hubs.ByDomain(name)
	if reg == nil {
		http.Error(w, "unknown realtime domain", http.StatusNotFound)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	token, ok := tokenFromRequest(r)
	if !ok {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	userID, err := h.tokens.UserID(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	sess, err := h.sessions.Resolve(r.Context(), userID)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, domain.ErrUnauthorized) {
			h.log.WithError(err).Error("resolve ws session")
			status = http.StatusInternalServerError
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("upgrade failed")
		return
	}

	peer := newPeer(conn, h.writeTimeout)
	log := h.log.WithFields(logrus.Fields{"domain": name, "user_id": sess.UserID, "peer": peer.ID()})
	reg.Register(sess.UserID, peer)
	log.Debug("peer connected")

	done := make(chan struct{})
	go h.keepAlive(peer, done)
	defer func() {
		close(done)
		reg.Unregister(sess.UserID, peer)
		_ = peer.Close()
		log.Debug("peer disconnected")
	}()

	h.readLoop(context.Background(), name, reg, sess, peer, log)
}

func (h *Handler) keepAlive(p *Peer, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := p.ping(); err != nil {
				_ = p.Close()
				return
			}
		}
	}
}

type inbound struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

type threadRef struct {
	ThreadID int64 `json:"thread_id" validate:"required,gt=0"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) readLoop(ctx context.Context, name string, reg *realtime.Registry, sess access.Session, p *Peer, log *logrus.Entry) {
	deadline := 2 * h.pingInterval
	_ = p.conn.SetReadDeadline(time.Now().Add(deadline))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("read failed")
			}
			return
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(deadline))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || h.validate.Struct(msg) != nil {
			h.reply(p, realtime.TypeError, errorPayload{Code: domain.CodeValidation, Message: "malformed message"})
			continue
		}

		switch {
		case msg.Type == TypePing:
			h.reply(p, TypePong, struct{}{})
		case name == realtime.DomainChat && (msg.Type == TypeThreadSubscribe || msg.Type == TypeThreadUnsubscribe):
			h.handleThread(ctx, reg, sess, p, msg)
		default:
			log.WithField("type", msg.Type).Debug("ignored inbound message")
		}
	}
}

func (h *Handler) handleThread(ctx context.Context, reg *realtime.Registry, sess access.Session, p *Peer, msg inbound) {
	var ref threadRef
	if err := json.Unmarshal(msg.Payload, &ref); err != nil || h.validate.Struct(ref) != nil {
		h.reply(p, realtime.TypeError, errorPayload{Code: domain.CodeValidation, Message: "thread_id is required"})
		return
	}
	topic := realtime.ThreadTopic(ref.ThreadID)
	if msg.Type == TypeThreadUnsubscribe {
		reg.Unsubscribe(topic, p)
		h.reply(p, TypeThreadUnsubscribed, threadRef{ThreadID: ref.ThreadID})
		return
	}
	if err := h.threads.RequireParticipant(ctx, sess.UserID, ref.ThreadID); err != nil {
		code, text := domain.CodeInternal, "could not subscribe"
		if de, ok := domain.AsError(err); ok {
			code, text = de.Code, de.Message
		} else {
			h.log.WithError(err).Error("check thread participation")
		}
		h.reply(p, realtime.TypeError, errorPayload{Code: code, Message: text})
		return
	}
	reg.Subscribe(topic, p)
	h.reply(p, TypeThreadSubscribed, threadRef{ThreadID: ref.ThreadID})
}

func (h *Handler) reply(p *Peer, eventType string, payload any) {
	data, err := json.Marshal(realtime.Envelope{Type: eventType, Payload: payload})
	if err != nil {
		h.log.WithError(err).Errorf("encode %s", eventType)
		return
	}
	if err := p.Send(data); err != nil {
		h.log.WithError(err).Debug("reply failed")
	}
}
