package server

import (
	"net/http"
	"strings"

	"github.com/teemow/mailai/internal/gmail"
)

// HeaderNextPageToken carries the upstream page token of a list response.
const HeaderNextPageToken = "X-Next-Page-Token"

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int64  `json:"maxResults"`
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type trashRequest struct {
	MessageID string `json:"messageId"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// mailClient builds a Gmail client for the bearer token of r.
func (s *Server) mailClient(r *http.Request) (*gmail.Client, error) {
	return s.gateway.Client(r.Context(), tokenFromContext(r.Context()))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var opts gmail.ListOptions
	if err := decodeJSON(w, r, &opts); err != nil {
		writeError(w, r, err)
		return
	}
	if err := opts.Filter.Validate(); err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := client.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.NextPageToken != "" {
		w.Header().Set(HeaderNextPageToken, result.NextPageToken)
	}
	writeJSON(w, http.StatusOK, result.Emails)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	emails, err := client.GetThread(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, badRequest("search query is required"))
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	emails, err := client.Search(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req gmail.ComposeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.To) == "" {
		writeError(w, r, badRequest("recipient is required"))
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sent, err := client.Send(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req gmail.ReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case strings.TrimSpace(req.To) == "":
		writeError(w, r, badRequest("recipient is required"))
		return
	case req.MessageID == "" || req.ThreadID == "":
		writeError(w, r, badRequest("messageId and threadId are required"))
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sent, err := client.Reply(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := client.MarkRead(r.Context(), req.MessageIDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req gmail.ComposeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := client.CreateDraft(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleTrash(w http.ResponseWriter, r *http.Request) {
	var req trashRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.MessageID == "" {
		writeError(w, r, badRequest("messageId is required"))
		return
	}

	client, err := s.mailClient(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := client.Trash(r.Context(), req.MessageID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
