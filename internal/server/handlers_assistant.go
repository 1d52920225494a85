package server

import (
	"net/http"
	"strings"

	"github.com/teemow/mailai/internal/assistant"
)

type rootResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Message: "Mail AI Backend is running"})
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, badRequest("message is required"))
		return
	}

	reply, err := s.assistant.Respond(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
