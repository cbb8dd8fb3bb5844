package httpserver

import (
	"net/http"

	"teamhub/internal/domain"
	"teamhub/internal/service"
)

type createTeamRequest struct {
	Name string  `json:"name" validate:"required"`
	Slug *string `json:"slug" validate:"omitempty,min=1,max=100"`
}

type memberRoleRequest struct {
	Role domain.TeamRole `json:"role" validate:"required,oneof=owner admin member"`
}

// @Summary      Create a team
// @Description  The caller becomes the team's owner
// @Tags         teams
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body createTeamRequest true "Team"
// @Success      201  {object}  service.TeamDetail
// @Failure      409  {object}  errorResponse
// @Router       /teams [post]
func handleCreateTeam(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTeamRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		team, err := teamSvc.Create(r.Context(), session(r), req.Name, req.Slug)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, team)
	}
}

func handleListTeams(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := teamSvc.ListMine(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, teams)
	}
}

func handleGetTeam(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		team, err := teamSvc.Get(r.Context(), session(r), teamID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, team)
	}
}

func handleDeleteTeam(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := teamSvc.Delete(r.Context(), session(r), teamID); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

// @Summary      List team members
// @Tags         teams
// @Security     BearerAuth
// @Produce      json
// @Param        teamID path int true "Team ID"
// @Success      200  {array}  service.MemberDetail
// @Failure      403  {object}  errorResponse
// @Router       /teams/{teamID}/members [get]
func handleListMembers(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		members, err := teamSvc.ListMembers(r.Context(), session(r), teamID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, members)
	}
}

func handleUpdateMemberRole(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req memberRoleRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		m, err := teamSvc.UpdateMemberRole(r.Context(), session(r), teamID, userID, req.Role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, m)
	}
}

func handleRemoveMember(teamSvc *service.TeamService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := teamSvc.RemoveMember(r.Context(), session(r), teamID, userID); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

// @Summary      Invite a user to a team
// @Tags         teams
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        teamID path int true "Team ID"
// @Param        input body userRef true "Invitee"
// @Success      201  {object}  service.InviteDetail
// @Failure      409  {object}  errorResponse
// @Router       /teams/{teamID}/invites [post]
func handleCreateInvite(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req userRef
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		inv, err := inviteSvc.Create(r.Context(), session(r), teamID, req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, inv)
	}
}

func handleListTeamInvites(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		invites, err := inviteSvc.ListForTeam(r.Context(), session(r), teamID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, invites)
	}
}

func handleListMyInvites(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invites, err := inviteSvc.ListMine(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, invites)
	}
}

func handleAcceptInvite(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "inviteID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		m, err := inviteSvc.Accept(r.Context(), session(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, m)
	}
}

func handleDeclineInvite(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "inviteID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		inv, err := inviteSvc.Decline(r.Context(), session(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, inv)
	}
}

func handleCancelInvite(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "inviteID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := inviteSvc.Cancel(r.Context(), session(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

func handleDeleteInvite(inviteSvc *service.InviteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "inviteID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := inviteSvc.Delete(r.Context(), session(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}
