package domain

import "time"

// User represents an application user. Permissions are not stored on the
// user; they are resolved from Role when a session is built.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	DisplayName    string     `db:"display_name" json:"display_name"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	Role           string     `db:"role" json:"role"`
	DeactivatedAt  *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// IsActive reports whether the account is not deactivated.
func (u *User) IsActive() bool {
	return u.DeactivatedAt == nil
}

// Role is a named permission bundle.
type Role struct {
	Name        string   `db:"name" json:"name"`
	Description string   `db:"description" json:"description"`
	Permissions []string `json:"permissions"`
}

// FriendStatus is the state of a friend request edge.
type FriendStatus string

const (
	FriendPending   FriendStatus = "pending"
	FriendAccepted  FriendStatus = "accepted"
	FriendDeclined  FriendStatus = "declined"
	FriendBlocked   FriendStatus = "blocked"
	FriendCancelled FriendStatus = "cancelled"
)

// Active reports whether the status counts towards the one-edge-per-pair rule.
func (s FriendStatus) Active() bool {
	return s == FriendPending || s == FriendAccepted || s == FriendBlocked
}

// FriendRequest is a directed sender -> receiver edge.
type FriendRequest struct {
	ID         int64        `db:"id" json:"id"`
	SenderID   int64        `db:"sender_id" json:"sender_id"`
	ReceiverID int64        `db:"receiver_id" json:"receiver_id"`
	Status     FriendStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// Involves reports whether userID is one of the two ends of the edge.
func (f *FriendRequest) Involves(userID int64) bool {
	return f.SenderID == userID || f.ReceiverID == userID
}

// Other returns the end of the edge that is not userID.
func (f *FriendRequest) Other(userID int64) int64 {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

// TeamRole is a member's role inside one team.
type TeamRole string

const (
	TeamOwner  TeamRole = "owner"
	TeamAdmin  TeamRole = "admin"
	TeamMember TeamRole = "member"
)

type Team struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      *string   `db:"slug" json:"slug,omitempty"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Member struct {
	TeamID   int64     `db:"team_id" json:"team_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	Role     TeamRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// InviteStatus is the state of a team invite.
type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteDeclined  InviteStatus = "declined"
	InviteCancelled InviteStatus = "cancelled"
)

type TeamInvite struct {
	ID        int64        `db:"id" json:"id"`
	TeamID    int64        `db:"team_id" json:"team_id"`
	InviterID int64        `db:"inviter_id" json:"inviter_id"`
	InviteeID int64        `db:"invitee_id" json:"invitee_id"`
	Status    InviteStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// ThreadType distinguishes chat threads.
type ThreadType string

const (
	ThreadDM   ThreadType = "dm"
	ThreadTeam ThreadType = "team"
	ThreadAI   ThreadType = "ai"
)

type ChatThread struct {
	ID            int64      `db:"id" json:"id"`
	Type          ThreadType `db:"type" json:"type"`
	TeamID        *int64     `db:"team_id" json:"team_id,omitempty"`
	Title         string     `db:"title" json:"title"`
	DMKey         *string    `db:"dm_key" json:"-"`
	AIOwnerID     *int64     `db:"ai_owner_id" json:"-"`
	CreatedBy     *int64     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
}

// MessageType distinguishes chat messages.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageAI     MessageType = "ai"
)

type ChatMessage struct {
	ID        int64       `db:"id"`
	ThreadID  int64       `db:"thread_id"`
	SenderID  *int64      `db:"sender_id"`
	Type      MessageType `db:"type"`
	Content   string      `db:"content"` // encrypted at rest
	Metadata  string      `db:"metadata"`
	CreatedAt time.Time   `db:"created_at"`
}

// NotificationType is the severity shown to the user.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	ActionURL *string          `db:"action_url" json:"action_url,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// EventStatus is the lifecycle of a calendar event.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventCancelled EventStatus = "cancelled"
)

// RSVP is an attendee's answer.
type RSVP string

const (
	RSVPPending   RSVP = "pending"
	RSVPAccepted  RSVP = "accepted"
	RSVPDeclined  RSVP = "declined"
	RSVPTentative RSVP = "tentative"
)

type CalendarEvent struct {
	ID          int64       `db:"id" json:"id"`
	OwnerID     int64       `db:"owner_id" json:"owner_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	StartsAt    time.Time   `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time   `db:"ends_at" json:"ends_at"`
	Status      EventStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

type Attendee struct {
	EventID int64 `db:"event_id" json:"event_id"`
	UserID  int64 `db:"user_id" json:"user_id"`
	RSVP    RSVP  `db:"rsvp" json:"rsvp"`
}

// LLMKey is a user's API key for one model provider, encrypted at rest.
type LLMKey struct {
	UserID       int64     `db:"user_id"`
	Provider     string    `db:"provider"`
	EncryptedKey string    `db:"encrypted_key"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
