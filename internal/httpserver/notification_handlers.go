package httpserver

import (
	"net/http"
	"strconv"

	"teamhub/internal/domain"
	"teamhub/internal/service"
)

type markReadRequest struct {
	IDs []int64 `json:"ids" validate:"omitempty,dive,gt=0"`
	All bool    `json:"all"`
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread   query bool false "Only unread"
// @Param        page     query int  false "Page (1-based)"
// @Param        per_page query int  false "Page size"
// @Success      200  {object}  service.NotificationPage
// @Router       /notifications [get]
func handleListNotifications(noteSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unread := false
		if v := r.URL.Query().Get("unread"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, r, domain.BadRequest("invalid unread"))
				return
			}
			unread = b
		}
		page, err := queryInt(r, "page", 1)
		if err != nil {
			writeError(w, r, err)
			return
		}
		perPage, err := queryInt(r, "per_page", 20)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out, err := noteSvc.List(r.Context(), session(r), unread, page, perPage)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

func handleUnreadCount(noteSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := noteSvc.UnreadCount(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, unreadCountResponse{Count: n})
	}
}

// @Summary      Mark notifications read
// @Description  Marks the given ids, or everything when all is set. Other peers of the user receive notifications.read.
// @Tags         notifications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body markReadRequest true "Selection"
// @Success      200  {object}  realtime.ReadPayload
// @Router       /notifications/read [post]
func handleMarkRead(noteSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markReadRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		payload, err := noteSvc.MarkRead(r.Context(), session(r), req.IDs, req.All)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, payload)
	}
}
