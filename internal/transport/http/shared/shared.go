// Package shared holds the JSON response envelope used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "medicus/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into its HTTP status and the
// uniform envelope. Unknown errors become an opaque 500 so internals
// never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}

	status := dErrors.ToHTTPStatus(domainErr.Code)
	resp := ErrorResponse{Error: string(domainErr.Code), Message: domainErr.Message}
	if status == http.StatusInternalServerError {
		resp.Message = ""
	}
	WriteJSON(w, status, resp)
}
