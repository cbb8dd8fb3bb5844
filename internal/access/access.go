// Package access evaluates what a session may do. The evaluator functions
// are pure; converting a false result into an error is the caller's job
// (Require is the one helper that does it).
package access

import (
	"teamhub/internal/domain"
)

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// Permission keys.
const (
	PermFriendsManage     = "friends.manage"
	PermTeamsCreate       = "teams.create"
	PermTeamsManage       = "teams.manage"
	PermChatUse           = "chat.use"
	PermChatAI            = "chat.ai"
	PermCalendarManage    = "calendar.manage"
	PermNotificationsRead = "notifications.read"
	PermUsersManage       = "users.manage"
	PermAdminOverride     = "admin.override"
)

// AllPermissions lists every known key.
var AllPermissions = []string{
	PermFriendsManage,
	PermTeamsCreate,
	PermTeamsManage,
	PermChatUse,
	PermChatAI,
	PermCalendarManage,
	PermNotificationsRead,
	PermUsersManage,
	PermAdminOverride,
}

// Session is the validated caller identity handed to every use-case.
type Session struct {
	UserID      int64
	Role        string
	Permissions []string
}

// NewSession is the only constructor; a session without a user id is not a
// session.
func NewSession(userID int64, role string, permissions []string) (Session, error) {
	if userID <= 0 {
		return Session{}, domain.Unauthorized("no authenticated user")
	}
	perms := make([]string, len(permissions))
	copy(perms, permissions)
	return Session{UserID: userID, Role: role, Permissions: perms}, nil
}

// HasRole is an exact match on the role name.
func HasRole(s Session, role string) bool {
	return s.Role == role
}

// HasPermission checks membership of key in the session's permission set.
func HasPermission(s Session, key string) bool {
	for _, p := range s.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// Can grants key when the session holds it, holds the admin override, or is
// an admin.
func Can(s Session, key string) bool {
	return HasPermission(s, key) || HasPermission(s, PermAdminOverride) || HasRole(s, RoleAdmin)
}

// IsOverride reports whether the session bypasses ownership checks.
func IsOverride(s Session) bool {
	return HasPermission(s, PermAdminOverride) || HasRole(s, RoleAdmin)
}

// Require turns a failed Can into a forbidden error.
func Require(s Session, key string) error {
	if !Can(s, key) {
		return domain.Forbidden(domain.CodeForbidden, "missing permission "+key)
	}
	return nil
}
