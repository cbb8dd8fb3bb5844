package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/realtime"
	"teamhub/internal/relation"
	"teamhub/internal/security"
)

const (
	MaxMessageRunes     = 5000
	defaultMessagePage  = 50
	maxMessagePage      = 100
	maxThreadTitleRunes = 200
	aiThreadTitle       = "Asystent AI"
)

// LLMProviders are the model providers a user can store a key for.
var LLMProviders = []string{"anthropic", "google", "mistral", "openai"}

// Cipher encrypts chat content and secrets at rest.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(enc string) (string, error)
}

type ChatService struct {
	users    domain.UserRepository
	friends  domain.FriendRepository
	teams    domain.TeamRepository
	chat     domain.ChatRepository
	keys     domain.LLMKeyRepository
	cipher   Cipher
	notifier realtime.Notifier
	log      *logrus.Entry
}

type ChatDeps struct {
	Users    domain.UserRepository
	Friends  domain.FriendRepository
	Teams    domain.TeamRepository
	Chat     domain.ChatRepository
	LLMKeys  domain.LLMKeyRepository
	Cipher   Cipher
	Notifier realtime.Notifier
}

func NewChatService(d ChatDeps, log *logrus.Entry) *ChatService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ChatService{
		users:    d.Users,
		friends:  d.Friends,
		teams:    d.Teams,
		chat:     d.Chat,
		keys:     d.LLMKeys,
		cipher:   d.Cipher,
		notifier: d.Notifier,
		log:      log.WithField("component", "chat"),
	}
}

// MessageDTO is the client-facing message, also the chat.message.new payload.
type MessageDTO struct {
	ID        int64              `json:"id"`
	ThreadID  int64              `json:"thread_id"`
	SenderID  *int64             `json:"sender_id"`
	Type      domain.MessageType `json:"type"`
	Content   string             `json:"content"`
	Metadata  json.RawMessage    `json:"metadata"`
	CreatedAt time.Time          `json:"created_at"`
}

// DMKey is the unordered-pair key of a direct thread.
func DMKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}

// GetOrCreateDM returns the direct thread between the caller and otherID,
// creating it on first use. Only accepted friends may talk.
func (s *ChatService) GetOrCreateDM(ctx context.Context, sess access.Session, otherID int64) (*domain.ChatThread, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	if otherID == sess.UserID {
		return nil, domain.Validation(domain.CodeSelfAction, "you cannot message yourself")
	}
	if _, err := activeUser(ctx, s.users, otherID); err != nil {
		return nil, err
	}

	key := DMKey(sess.UserID, otherID)
	if t, err := s.chat.FindByDMKey(ctx, key); err != nil {
		return nil, err
	} else if t != nil {
		if err := s.requireFriends(ctx, sess.UserID, otherID); err != nil {
			return nil, err
		}
		return t, nil
	}
	if err := s.requireFriends(ctx, sess.UserID, otherID); err != nil {
		return nil, err
	}

	t, created, err := s.chat.CreateThread(ctx, &domain.ChatThread{
		Type:      domain.ThreadDM,
		DMKey:     &key,
		CreatedBy: &sess.UserID,
	}, []int64{sess.UserID, otherID})
	if err != nil {
		return nil, err
	}
	if created {
		s.announce(t, []int64{sess.UserID, otherID})
	}
	return t, nil
}

func (s *ChatService) requireFriends(ctx context.Context, a, b int64) error {
	edges, err := s.friends.ListBetween(ctx, a, b)
	if err != nil {
		return err
	}
	cur := relation.ResolveFriendship(edges)
	if cur == nil || cur.Status != domain.FriendAccepted {
		return domain.Forbidden(domain.CodeNotFriends, "you can only message friends")
	}
	return nil
}

// CreateTeamThread opens a new thread inside a team the caller belongs to.
func (s *ChatService) CreateTeamThread(ctx context.Context, sess access.Session, teamID int64, title string) (*domain.ChatThread, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" || len([]rune(title)) > maxThreadTitleRunes {
		return nil, domain.Validation(domain.CodeValidation, "invalid thread title",
			domain.Issue{Field: "title", Rule: "len", Message: fmt.Sprintf("1 to %d characters", maxThreadTitleRunes)})
	}
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, asNotFound(err, "team")
	}
	m, err := s.teams.GetMember(ctx, teamID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.Forbidden(domain.CodeNotMember, "you are not a member of this team")
	}

	t, _, err := s.chat.CreateThread(ctx, &domain.ChatThread{
		Type:      domain.ThreadTeam,
		TeamID:    &teamID,
		Title:     title,
		CreatedBy: &sess.UserID,
	}, []int64{sess.UserID})
	if err != nil {
		return nil, err
	}
	members, err := s.chat.ListParticipantIDs(ctx, t.ID)
	if err != nil {
		s.log.WithError(err).WithField("thread_id", t.ID).Warn("list participants for announcement")
		return t, nil
	}
	s.announce(t, members)
	return t, nil
}

// GetOrCreateAIThread provisions the caller's single assistant thread. A
// stored provider key is required before anything is created.
func (s *ChatService) GetOrCreateAIThread(ctx context.Context, sess access.Session) (*domain.ChatThread, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	if err := access.Require(sess, access.PermChatAI); err != nil {
		return nil, err
	}
	if t, err := s.chat.FindAIThread(ctx, sess.UserID); err != nil {
		return nil, err
	} else if t != nil {
		return t, nil
	}
	providers, err := s.keys.ListProviders(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, domain.Validation(domain.CodeMissingLLMKey, "configure an LLM provider key first")
	}

	owner := sess.UserID
	t, created, err := s.chat.CreateThread(ctx, &domain.ChatThread{
		Type:      domain.ThreadAI,
		Title:     aiThreadTitle,
		AIOwnerID: &owner,
		CreatedBy: &owner,
	}, []int64{owner})
	if err != nil {
		return nil, err
	}
	if created {
		s.announce(t, []int64{owner})
	}
	return t, nil
}

func (s *ChatService) announce(t *domain.ChatThread, userIDs []int64) {
	env := realtime.Envelope{Type: realtime.TypeChatThreadCreated, Payload: t}
	for _, id := range userIDs {
		s.notifier.Notify(id, env)
	}
}

func (s *ChatService) ListThreads(ctx context.Context, sess access.Session) ([]*domain.ChatThread, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	threads, err := s.chat.ListThreadsForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []*domain.ChatThread{}
	}
	return threads, nil
}

// GetThread loads a thread the caller participates in.
func (s *ChatService) GetThread(ctx context.Context, sess access.Session, threadID int64) (*domain.ChatThread, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	t, err := s.chat.GetThread(ctx, threadID)
	if err != nil {
		return nil, asNotFound(err, "thread")
	}
	if err := s.RequireParticipant(ctx, sess.UserID, threadID); err != nil {
		return nil, err
	}
	return t, nil
}

// RequireParticipant fails with Forbidden unless userID takes part in the
// thread.
func (s *ChatService) RequireParticipant(ctx context.Context, userID, threadID int64) error {
	ok, err := s.chat.IsParticipant(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Forbidden(domain.CodeForbidden, "you are not a participant of this thread")
	}
	return nil
}

func (s *ChatService) ListMessages(ctx context.Context, sess access.Session, threadID, beforeID int64, limit int) ([]MessageDTO, error) {
	if _, err := s.GetThread(ctx, sess, threadID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	msgs, err := s.chat.ListMessages(ctx, threadID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		dto, err := s.toDTO(m)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

// SendMessage stores an encrypted text message and broadcasts it to the
// thread's subscribers.
func (s *ChatService) SendMessage(ctx context.Context, sess access.Session, threadID int64, content string, metadata json.RawMessage) (*MessageDTO, error) {
	if _, err := s.GetThread(ctx, sess, threadID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.Validation(domain.CodeValidation, "message is empty",
			domain.Issue{Field: "content", Rule: "required", Message: "content is required"})
	}
	if n := len([]rune(content)); n > MaxMessageRunes {
		return nil, domain.Validation(domain.CodeValidation, "message is too long",
			domain.Issue{Field: "content", Rule: "max", Message: fmt.Sprintf("at most %d characters", MaxMessageRunes)})
	}
	meta := "{}"
	if len(metadata) > 0 && string(metadata) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(metadata, &obj); err != nil {
			return nil, domain.Validation(domain.CodeValidation, "metadata must be a JSON object",
				domain.Issue{Field: "metadata", Rule: "object", Message: "must be a JSON object"})
		}
		meta = string(metadata)
	}

	enc, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}
	sender := sess.UserID
	m := &domain.ChatMessage{
		ThreadID: threadID,
		SenderID: &sender,
		Type:     domain.MessageText,
		Content:  enc,
		Metadata: meta,
	}
	if err := s.chat.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	dto := MessageDTO{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		Content:   content,
		Metadata:  json.RawMessage(m.Metadata),
		CreatedAt: m.CreatedAt,
	}
	s.notifier.NotifyTopic(realtime.ThreadTopic(threadID), realtime.Envelope{Type: realtime.TypeChatMessageNew, Payload: dto})
	return &dto, nil
}

func (s *ChatService) toDTO(m *domain.ChatMessage) (MessageDTO, error) {
	plain, err := s.cipher.Decrypt(m.Content)
	if err != nil {
		return MessageDTO{}, fmt.Errorf("decrypt message %d: %w", m.ID, err)
	}
	meta := m.Metadata
	if meta == "" {
		meta = "{}"
	}
	return MessageDTO{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		Content:   plain,
		Metadata:  json.RawMessage(meta),
		CreatedAt: m.CreatedAt,
	}, nil
}

func validProvider(p string) bool {
	for _, known := range LLMProviders {
		if p == known {
			return true
		}
	}
	return false
}

// LLMKeyView is what the API shows of a stored key.
type LLMKeyView struct {
	Provider string `json:"provider"`
	Hint     string `json:"hint"`
}

// SetLLMKey stores (or replaces) the caller's key for provider.
func (s *ChatService) SetLLMKey(ctx context.Context, sess access.Session, provider, key string) (*LLMKeyView, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !validProvider(provider) {
		return nil, domain.Validation(domain.CodeValidation, "unknown provider",
			domain.Issue{Field: "provider", Rule: "oneof", Message: strings.Join(LLMProviders, " ")})
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Validation(domain.CodeValidation, "key is required",
			domain.Issue{Field: "key", Rule: "required", Message: "key is required"})
	}
	enc, err := s.cipher.Encrypt(key)
	if err != nil {
		return nil, fmt.Errorf("encrypt llm key: %w", err)
	}
	if err := s.keys.Upsert(ctx, &domain.LLMKey{UserID: sess.UserID, Provider: provider, EncryptedKey: enc}); err != nil {
		return nil, err
	}
	return &LLMKeyView{Provider: provider, Hint: security.Hint(key)}, nil
}

func (s *ChatService) DeleteLLMKey(ctx context.Context, sess access.Session, provider string) error {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return err
	}
	err := s.keys.Delete(ctx, sess.UserID, strings.ToLower(provider))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("no key stored for " + provider)
	}
	return err
}

func (s *ChatService) ListLLMProviders(ctx context.Context, sess access.Session) ([]string, error) {
	if err := access.Require(sess, access.PermChatUse); err != nil {
		return nil, err
	}
	providers, err := s.keys.ListProviders(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if providers == nil {
		providers = []string{}
	}
	return providers, nil
}
