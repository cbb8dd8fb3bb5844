package httpserver

import (
	"net/http"
	"time"

	"teamhub/internal/domain"
	"teamhub/internal/service"
)

// defaultWindow is how far ahead the event list looks without an explicit to.
const defaultWindow = 30 * 24 * time.Hour

type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AttendeeIDs []int64   `json:"attendee_ids" validate:"omitempty,dive,gt=0"`
}

func (e eventRequest) input() service.EventInput {
	return service.EventInput{
		Title:       e.Title,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		AttendeeIDs: e.AttendeeIDs,
	}
}

type rsvpRequest struct {
	RSVP domain.RSVP `json:"rsvp" validate:"required,oneof=accepted declined tentative"`
}

func queryTime(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, domain.BadRequest("invalid " + name + ", expected RFC 3339")
	}
	return t, nil
}

// @Summary      List my events
// @Description  Events the caller owns or attends that overlap [from, to)
// @Tags         calendar
// @Security     BearerAuth
// @Produce      json
// @Param        from query string false "RFC 3339, default now"
// @Param        to   query string false "RFC 3339, default from + 30 days"
// @Success      200  {array}  domain.CalendarEvent
// @Router       /calendar/events [get]
func handleListEvents(calSvc *service.CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryTime(r, "from", time.Now().UTC())
		if err != nil {
			writeError(w, r, err)
			return
		}
		to, err := queryTime(r, "to", from.Add(defaultWindow))
		if err != nil {
			writeError(w, r, err)
			return
		}
		events, err := calSvc.ListMine(r.Context(), session(r), from, to)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, events)
	}
}

// @Summary      Create an event
// @Tags         calendar
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body eventRequest true "Event"
// @Success      201  {object}  service.EventDetail
// @Failure      422  {object}  errorResponse
// @Router       /calendar/events [post]
func handleCreateEvent(calSvc *service.CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ev, err := calSvc.Create(r.Context(), session(r), req.input())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, ev)
	}
}

func handleUpdateEvent(calSvc *service.CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "eventID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req eventRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ev, err := calSvc.Update(r.Context(), session(r), id, req.input())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, ev)
	}
}

func handleCancelEvent(calSvc *service.CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "eventID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		ev, err := calSvc.Cancel(r.Context(), session(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, ev)
	}
}

func handleRSVP(calSvc *service.CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "eventID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req rsvpRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ev, err := calSvc.RSVP(r.Context(), session(r), id, req.RSVP)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, ev)
	}
}
