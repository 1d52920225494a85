package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/teemow/mailai/internal/gmail"
	"github.com/teemow/mailai/internal/logging"
)

// maxBodyBytes caps request bodies; outgoing mail bodies are the largest payload.
const maxBodyBytes = 10 << 20

// badRequestError marks client input errors that map to 400.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &badRequestError{err: fmt.Errorf(format, args...)}
}

// decodeJSON reads r's body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// statusFor maps an error to an HTTP status. Upstream errors keep their
// status when it is a 4xx or 5xx; everything unrecognized is a 500.
func statusFor(err error) int {
	var (
		bad      *badRequestError
		apiErr   *googleapi.Error
		retrieve *oauth2.RetrieveError
		llmErr   *openai.Error
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case gmail.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return upstreamStatus(apiErr.Code)
	case errors.As(err, &retrieve) && retrieve.Response != nil:
		return upstreamStatus(retrieve.Response.StatusCode)
	case errors.As(err, &llmErr):
		return upstreamStatus(llmErr.StatusCode)
	default:
		return http.StatusInternalServerError
	}
}

func upstreamStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and renders it with the status from statusFor.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logging.Err(err), "status", status)
	} else {
		logger.Warn("request rejected", logging.Err(err), "status", status)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
