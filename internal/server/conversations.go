package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memoroo/memoroo/internal/auth"
	"github.com/memoroo/memoroo/pkg/memory"
)

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	conv, err := s.deps.Conversations.Create(r.Context(), memory.Conversation{
		OwnerID: auth.OwnerID(r.Context()),
		Title:   req.Title,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversationJSON(*conv))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.deps.Conversations.List(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]conversationJSON, len(convs))
	for i, c := range convs {
		out[i] = toConversationJSON(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.deps.Conversations.Get(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationJSON(*conv))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Conversations.Delete(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Conversations.Messages(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]messageJSON, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageJSON(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Conversations.DeleteMessage(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChatTurn runs one full pipeline turn. Degraded turns are a 200 with
// action "degraded_fallback" — from the client's point of view the assistant
// answered, just without its memory.
func (s *Server) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := s.deps.Orchestrator.ChatTurn(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "conversationID"), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageJSON(*msg))
}
