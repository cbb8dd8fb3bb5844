package httpserver

import (
	"net/http"

	"teamhub/internal/service"
)

// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        offset query int false "Offset"
// @Param        limit  query int false "Page size"
// @Success      200  {array}  service.UserSummary
// @Router       /users [get]
func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit", 50)
		if err != nil {
			writeError(w, r, err)
			return
		}
		users, err := userSvc.List(r.Context(), session(r), offset, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, users)
	}
}

func handleDeactivateMe(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := userSvc.Deactivate(r.Context(), session(r)); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

func handleDeleteUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := userSvc.Delete(r.Context(), session(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}
