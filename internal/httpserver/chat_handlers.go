package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teamhub/internal/service"
)

type teamThreadRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type sendMessageRequest struct {
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
}

type llmKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

func handleListThreads(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threads, err := chatSvc.ListThreads(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, threads)
	}
}

func handleGetThread(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "threadID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		t, err := chatSvc.GetThread(r.Context(), session(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, t)
	}
}

// @Summary      Open a direct thread
// @Description  Returns the existing DM thread with a friend, creating it on first use
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body userRef true "Friend"
// @Success      200  {object}  domain.ChatThread
// @Failure      403  {object}  errorResponse
// @Router       /chat/threads/dm [post]
func handleCreateDM(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRef
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := chatSvc.GetOrCreateDM(r.Context(), session(r), req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, t)
	}
}

func handleCreateTeamThread(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := pathID(r, "teamID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req teamThreadRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := chatSvc.CreateTeamThread(r.Context(), session(r), teamID, req.Title)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, t)
	}
}

func handleCreateAIThread(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := chatSvc.GetOrCreateAIThread(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, t)
	}
}

// @Summary      List messages
// @Description  Newest first; pass before to page further back
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        threadID path  int true  "Thread ID"
// @Param        before   query int false "Only messages with a smaller id"
// @Param        limit    query int false "Page size (max 100)"
// @Success      200  {array}  service.MessageDTO
// @Router       /chat/threads/{threadID}/messages [get]
func handleListMessages(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "threadID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		before, err := queryInt(r, "before", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		msgs, err := chatSvc.ListMessages(r.Context(), session(r), id, int64(before), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, msgs)
	}
}

// @Summary      Send a message
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        threadID path int true "Thread ID"
// @Param        input body sendMessageRequest true "Message"
// @Success      201  {object}  service.MessageDTO
// @Failure      422  {object}  errorResponse
// @Router       /chat/threads/{threadID}/messages [post]
func handleSendMessage(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "threadID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req sendMessageRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := chatSvc.SendMessage(r.Context(), session(r), id, req.Content, req.Metadata)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, msg)
	}
}

func handleListLLMKeys(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := chatSvc.ListLLMProviders(r.Context(), session(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, providers)
	}
}

func handleSetLLMKey(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req llmKeyRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		view, err := chatSvc.SetLLMKey(r.Context(), session(r), chi.URLParam(r, "provider"), req.Key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, view)
	}
}

func handleDeleteLLMKey(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := chatSvc.DeleteLLMKey(r.Context(), session(r), chi.URLParam(r, "provider")); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}
