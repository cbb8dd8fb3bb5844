package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
// Get* methods return ErrNotFound when the row does not exist.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetDeactivated(ctx context.Context, id int64, at *time.Time) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// RoleRepository resolves role permission sets.
type RoleRepository interface {
	Get(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

// FriendRepository persists friend request edges. Transition-style methods
// only apply when the row is still in one of the expected statuses and
// return ErrConflict otherwise.
type FriendRepository interface {
	Create(ctx context.Context, fr *FriendRequest) error
	GetByID(ctx context.Context, id int64) (*FriendRequest, error)
	ListBetween(ctx context.Context, a, b int64) ([]*FriendRequest, error)
	ListForUser(ctx context.Context, userID int64, statuses ...FriendStatus) ([]*FriendRequest, error)
	UpdateStatus(ctx context.Context, id int64, from, to FriendStatus) error
	Overwrite(ctx context.Context, id, senderID, receiverID int64, to FriendStatus, from ...FriendStatus) error
	DeleteWithStatus(ctx context.Context, id int64, status FriendStatus) error
}

// TeamRepository persists teams and their members.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id int64) (*Team, error)
	ListForUser(ctx context.Context, userID int64) ([]*Team, error)
	Delete(ctx context.Context, id int64) error
	GetMember(ctx context.Context, teamID, userID int64) (*Member, error)
	ListMembers(ctx context.Context, teamID int64) ([]*Member, error)
	RemoveMember(ctx context.Context, teamID, userID int64) error
	UpdateMemberRole(ctx context.Context, teamID, userID int64, role TeamRole) error
	CountRole(ctx context.Context, teamID int64, role TeamRole) (int, error)
}

// TeamInviteRepository persists team invites.
type TeamInviteRepository interface {
	Create(ctx context.Context, inv *TeamInvite) error
	GetByID(ctx context.Context, id int64) (*TeamInvite, error)
	FindPending(ctx context.Context, teamID, inviteeID int64) (*TeamInvite, error)
	ListForTeam(ctx context.Context, teamID int64) ([]*TeamInvite, error)
	ListPendingForUser(ctx context.Context, userID int64) ([]*TeamInvite, error)
	UpdateStatus(ctx context.Context, id int64, from, to InviteStatus) error
	// Accept flips a pending invite to accepted and inserts the member row
	// in one transaction.
	Accept(ctx context.Context, id int64) (*Member, error)
	DeleteWithStatus(ctx context.Context, id int64, status InviteStatus) error
}

// ChatRepository persists threads, participants and messages.
type ChatRepository interface {
	// CreateThread inserts the thread unless its dm_key or ai_owner_id
	// already exists, in which case the existing thread is returned with
	// created == false.
	CreateThread(ctx context.Context, t *ChatThread, participantIDs []int64) (thread *ChatThread, created bool, err error)
	GetThread(ctx context.Context, id int64) (*ChatThread, error)
	FindByDMKey(ctx context.Context, key string) (*ChatThread, error)
	FindAIThread(ctx context.Context, ownerID int64) (*ChatThread, error)
	ListThreadsForUser(ctx context.Context, userID int64) ([]*ChatThread, error)
	ListParticipantIDs(ctx context.Context, threadID int64) ([]int64, error)
	IsParticipant(ctx context.Context, threadID, userID int64) (bool, error)
	CreateMessage(ctx context.Context, m *ChatMessage) error
	ListMessages(ctx context.Context, threadID, beforeID int64, limit int) ([]*ChatMessage, error)
}

// NotificationRepository persists notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, offset, limit int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	// MarkRead marks the given ids owned by userID as read and returns the
	// ids that actually changed.
	MarkRead(ctx context.Context, userID int64, ids []int64) ([]int64, error)
	MarkAllRead(ctx context.Context, userID int64) (int, error)
}

// CalendarRepository persists calendar events and attendees.
type CalendarRepository interface {
	Create(ctx context.Context, e *CalendarEvent, attendeeIDs []int64) error
	GetByID(ctx context.Context, id int64) (*CalendarEvent, error)
	Update(ctx context.Context, e *CalendarEvent) error
	SetStatus(ctx context.Context, id int64, from, to EventStatus) error
	ListAttendees(ctx context.Context, eventID int64) ([]*Attendee, error)
	SetRSVP(ctx context.Context, eventID, userID int64, rsvp RSVP) error
	ListForUser(ctx context.Context, userID int64, from, to time.Time) ([]*CalendarEvent, error)
}

// LLMKeyRepository persists users' model provider keys.
type LLMKeyRepository interface {
	Upsert(ctx context.Context, k *LLMKey) error
	Delete(ctx context.Context, userID int64, provider string) error
	ListProviders(ctx context.Context, userID int64) ([]string, error)
}
