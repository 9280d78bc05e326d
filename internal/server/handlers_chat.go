package server

import (
	"encoding/json"
	"net/http"

	"taskflow-backend/internal/types"
)

// handleChat runs one conversational turn. Pipeline failures never surface
// as HTTP errors: the agent degrades to an apologetic reply, so a syntactic
// 400 on malformed JSON is the only non-200 this endpoint produces.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp := s.agent.HandleMessage(r.Context(), userIDFrom(r.Context()), req.Message)
	s.writeJSON(w, http.StatusOK, resp)
}
