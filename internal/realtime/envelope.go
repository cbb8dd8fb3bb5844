package realtime

import "strconv"

// Event domains; each has its own registry and WS endpoint.
const (
	DomainNotifications = "notifications"
	DomainChat          = "chat"
	DomainCalendar      = "calendar"
)

// Envelope types.
const (
	TypeNotificationNew   = "notification.new"
	TypeNotificationsRead = "notifications.read"
	TypeChatMessageNew    = "chat.message.new"
	TypeChatThreadCreated = "chat.thread.created"
	TypeCalendarCreated   = "calendar.event.created"
	TypeCalendarUpdated   = "calendar.event.updated"
	TypeCalendarCancelled = "calendar.event.cancelled"
	TypeCalendarRSVP      = "calendar.rsvp.changed"
	TypeError             = "error"
)

// Envelope is the tagged message sent over every realtime channel.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ReadPayload is the payload of notifications.read.
type ReadPayload struct {
	IDs []int64 `json:"ids,omitempty"`
	All bool    `json:"all,omitempty"`
}

// ThreadTopic is the chat topic every participant viewing a thread joins.
func ThreadTopic(threadID int64) string {
	return "thread:" + strconv.FormatInt(threadID, 10)
}

// KnownDomain reports whether d names a realtime domain.
func KnownDomain(d string) bool {
	switch d {
	case DomainNotifications, DomainChat, DomainCalendar:
		return true
	}
	return false
}
