package realtime

import "github.com/sirupsen/logrus"

// Hubs bundles the per-domain registries of one process.
type Hubs struct {
	Notifications *Registry
	Chat          *Registry
	Calendar      *Registry
}

func NewHubs(log *logrus.Entry) *Hubs {
	return &Hubs{
		Notifications: NewRegistry(DomainNotifications, log),
		Chat:          NewRegistry(DomainChat, log),
		Calendar:      NewRegistry(DomainCalendar, log),
	}
}

// ByDomain returns the registry for d, or nil.
func (h *Hubs) ByDomain(d string) *Registry {
	switch d {
	case DomainNotifications:
		return h.Notifications
	case DomainChat:
		return h.Chat
	case DomainCalendar:
		return h.Calendar
	}
	return nil
}

// DisconnectUser drops the user's peers from every domain.
func (h *Hubs) DisconnectUser(userID int64) {
	h.Notifications.DisconnectUser(userID)
	h.Chat.DisconnectUser(userID)
	h.Calendar.DisconnectUser(userID)
}

// CloseAll drops every peer of every domain.
func (h *Hubs) CloseAll() {
	h.Notifications.CloseAll()
	h.Chat.CloseAll()
	h.Calendar.CloseAll()
}
