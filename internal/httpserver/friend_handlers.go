package httpserver

import (
	"context"
	"net/http"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/service"
)

type userRef struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type unblockResponse struct {
	Unblocked bool `json:"unblocked"`
}

// @Summary      Friends overview
// @Description  Accepted friends, incoming and outgoing requests, and blocks
// @Tags         friends
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  service.FriendOverview
// @Router       /friends [get]
func handleFriendOverview(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overview, err := friendSvc.List(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, overview)
	}
}

// @Summary      Send a friend request
// @Tags         friends
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body userRef true "Receiver"
// @Success      201  {object}  domain.FriendRequest
// @Failure      409  {object}  errorResponse
// @Router       /friends/requests [post]
func handleInviteFriend(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRef
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		fr, err := friendSvc.Invite(r.Context(), session(r), req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, fr)
	}
}

type friendTransition func(ctx context.Context, sess access.Session, requestID int64) (*domain.FriendRequest, error)

// handleFriendTransition serves accept, decline and cancel, which share a
// shape: a request id in, the updated request out.
func handleFriendTransition(apply friendTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "requestID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		fr, err := apply(r.Context(), session(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, fr)
	}
}

func handleDeleteDeclinedFriend(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "requestID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := friendSvc.DeleteDeclined(r.Context(), session(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

func handleRemoveFriend(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := friendSvc.Remove(r.Context(), session(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

func handleBlock(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRef
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		fr, err := friendSvc.Block(r.Context(), session(r), req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, fr)
	}
}

func handleUnblock(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		removed, err := friendSvc.Unblock(r.Context(), session(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, unblockResponse{Unblocked: removed})
	}
}
