// Package relation holds the friend-request and team-invite state machines
// as pure checks over already-loaded rows.
package relation

import (
	"teamhub/internal/domain"
)

// ResolveFriendship picks the active edge of a pair out of every edge stored
// between them, in either direction. Storage guarantees there is at most one;
// if several ever slip through, the most recently updated wins.
func ResolveFriendship(edges []*domain.FriendRequest) *domain.FriendRequest {
	var active *domain.FriendRequest
	for _, e := range edges {
		if !e.Status.Active() {
			continue
		}
		if active == nil || e.UpdatedAt.After(active.UpdatedAt) {
			active = e
		}
	}
	return active
}

// CheckInvite decides whether sender may open a new request to receiver
// given the pair's active edge.
func CheckInvite(active *domain.FriendRequest, senderID, receiverID int64) error {
	if senderID == receiverID {
		return domain.Validation(domain.CodeSelfAction, "cannot send a friend request to yourself")
	}
	if active == nil {
		return nil
	}
	return ActiveEdgeConflict(active.Status)
}

// ActiveEdgeConflict names the existing status in a conflict error.
func ActiveEdgeConflict(status domain.FriendStatus) error {
	switch status {
	case domain.FriendPending:
		return domain.Conflict(domain.CodeFriendPending, "a friend request is already pending")
	case domain.FriendAccepted:
		return domain.Conflict(domain.CodeAlreadyFriends, "you are already friends")
	default:
		return domain.Conflict(domain.CodeBlocked, "this relationship is blocked")
	}
}

// CheckAccept allows only the receiver of a pending request.
func CheckAccept(fr *domain.FriendRequest, actorID int64) error {
	return checkReceiverPending(fr, actorID)
}

// CheckDecline allows only the receiver of a pending request.
func CheckDecline(fr *domain.FriendRequest, actorID int64) error {
	return checkReceiverPending(fr, actorID)
}

func checkReceiverPending(fr *domain.FriendRequest, actorID int64) error {
	if fr.ReceiverID != actorID {
		if fr.SenderID == actorID {
			return domain.Forbidden(domain.CodeForbidden, "only the receiver can answer this request")
		}
		return domain.NotFound("friend request not found")
	}
	if fr.Status != domain.FriendPending {
		return domain.Conflict(domain.CodeRequestNotPending, "friend request is "+string(fr.Status))
	}
	return nil
}

// CheckCancel allows only the sender of a pending request.
func CheckCancel(fr *domain.FriendRequest, actorID int64) error {
	if fr.SenderID != actorID {
		if fr.ReceiverID == actorID {
			return domain.Forbidden(domain.CodeForbidden, "only the sender can cancel this request")
		}
		return domain.NotFound("friend request not found")
	}
	if fr.Status != domain.FriendPending {
		return domain.Conflict(domain.CodeRequestNotPending, "friend request is "+string(fr.Status))
	}
	return nil
}

// CheckDeleteDeclined allows the receiver to drop a declined request.
func CheckDeleteDeclined(fr *domain.FriendRequest, actorID int64) error {
	if !fr.Involves(actorID) {
		return domain.NotFound("friend request not found")
	}
	if fr.ReceiverID != actorID {
		return domain.Forbidden(domain.CodeForbidden, "only the receiver can delete this request")
	}
	if fr.Status != domain.FriendDeclined {
		return domain.Conflict(domain.CodeRequestNotDeclined, "only declined requests can be deleted")
	}
	return nil
}

// BlockAction is what a block request turns into.
type BlockAction int

const (
	BlockNoop BlockAction = iota
	BlockCreate
	BlockOverwrite
)

// BlockPlan describes how to apply a block.
type BlockPlan struct {
	Action BlockAction
	// Edge is the active edge to overwrite (BlockOverwrite) or the existing
	// block (BlockNoop).
	Edge *domain.FriendRequest
}

// PlanBlock decides how actor blocks target. Either party may block until
// the other has blocked them.
func PlanBlock(active *domain.FriendRequest, actorID, targetID int64) (BlockPlan, error) {
	if actorID == targetID {
		return BlockPlan{}, domain.Validation(domain.CodeSelfAction, "cannot block yourself")
	}
	if active == nil {
		return BlockPlan{Action: BlockCreate}, nil
	}
	if active.Status == domain.FriendBlocked {
		if active.SenderID == actorID {
			return BlockPlan{Action: BlockNoop, Edge: active}, nil
		}
		return BlockPlan{}, domain.Conflict(domain.CodeBlockedByOther, "you have been blocked by this user")
	}
	return BlockPlan{Action: BlockOverwrite, Edge: active}, nil
}

// PlanUnblock reports whether unblocking changes anything. Only the blocker
// may lift a block; no block at all is a no-op.
func PlanUnblock(active *domain.FriendRequest, actorID int64) (bool, error) {
	if active == nil || active.Status != domain.FriendBlocked {
		return false, nil
	}
	if active.SenderID != actorID {
		return false, domain.Forbidden(domain.CodeBlockedByOther, "only the user who blocked can unblock")
	}
	return true, nil
}

// CheckRemoveFriend allows either party of an accepted edge.
func CheckRemoveFriend(active *domain.FriendRequest) error {
	if active == nil || active.Status != domain.FriendAccepted {
		return domain.Conflict(domain.CodeNotFriends, "you are not friends")
	}
	return nil
}
