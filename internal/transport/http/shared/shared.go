// Package shared holds JSON response helpers used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/mirroredkube/tokenops-sub001/pkg/domain-errors"
	"github.com/mirroredkube/tokenops-sub001/pkg/requestcontext"
)

// ErrorResponse is the wire shape of every error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and wire shape. Internal
// causes are logged, never leaked to the client.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domainerrors.CodeOf(err)
	status := domainerrors.ToHTTPStatus(code)

	message := ""
	var de *domainerrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
		}
		message = "internal error"
	}

	WriteJSON(w, status, ErrorResponse{
		Error:     string(code),
		Message:   message,
		RequestID: requestcontext.RequestID(r.Context()),
	})
}

// WriteBadRequest is a shorthand for malformed request bodies.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:     string(domainerrors.CodeBadRequest),
		Message:   message,
		RequestID: requestcontext.RequestID(r.Context()),
	})
}
