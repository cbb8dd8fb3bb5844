package relation

import (
	"teamhub/internal/domain"
)

// IsManager reports whether role may invite, remove and configure.
func IsManager(role domain.TeamRole) bool {
	return role == domain.TeamOwner || role == domain.TeamAdmin
}

// CheckAnswerInvite allows only the invitee of a pending invite.
func CheckAnswerInvite(inv *domain.TeamInvite, actorID int64) error {
	if inv.InviteeID != actorID {
		return domain.Forbidden(domain.CodeForbidden, "only the invitee can answer this invite")
	}
	if inv.Status != domain.InvitePending {
		return domain.Conflict(domain.CodeInviteNotPending, "invite is "+string(inv.Status))
	}
	return nil
}

// CheckCancelInvite expects the caller's manager status to be checked
// already; only pending invites can be cancelled.
func CheckCancelInvite(inv *domain.TeamInvite) error {
	if inv.Status != domain.InvitePending {
		return domain.Conflict(domain.CodeInviteNotPending, "invite is "+string(inv.Status))
	}
	return nil
}

// CheckDeleteInvite allows the invitee to drop a declined invite.
func CheckDeleteInvite(inv *domain.TeamInvite, actorID int64) error {
	if inv.InviteeID != actorID {
		return domain.Forbidden(domain.CodeForbidden, "only the invitee can delete this invite")
	}
	if inv.Status != domain.InviteDeclined {
		return domain.Conflict(domain.CodeInviteNotDeclined, "only declined invites can be deleted")
	}
	return nil
}

// CheckRemoveMember guards member removal. actor is nil when the caller is
// acting through an override rather than a membership.
func CheckRemoveMember(actor *domain.Member, target *domain.Member, ownerCount int) error {
	if target.Role == domain.TeamOwner && ownerCount <= 1 {
		return domain.Forbidden(domain.CodeRoleProtected, "the team owner cannot be removed")
	}
	if actor == nil || actor.UserID == target.UserID {
		return nil
	}
	if !IsManager(actor.Role) {
		return domain.Forbidden(domain.CodeForbidden, "only team managers can remove members")
	}
	if target.Role == domain.TeamOwner && actor.Role != domain.TeamOwner {
		return domain.Forbidden(domain.CodeRoleProtected, "admins cannot remove an owner")
	}
	return nil
}

// CheckRoleChange allows the owner to move members between admin and member.
// actor is nil under an override. Ownership is not transferable.
func CheckRoleChange(actor *domain.Member, target *domain.Member, to domain.TeamRole) error {
	if to != domain.TeamAdmin && to != domain.TeamMember {
		return domain.Validation(domain.CodeValidation, "role must be admin or member")
	}
	if actor != nil && actor.Role != domain.TeamOwner {
		return domain.Forbidden(domain.CodeForbidden, "only the owner can change roles")
	}
	if target.Role == domain.TeamOwner {
		return domain.Forbidden(domain.CodeRoleProtected, "the owner role cannot be changed")
	}
	return nil
}
