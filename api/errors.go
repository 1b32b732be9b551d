package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// APIError is a non-success response from the backend
type APIError struct {
	StatusCode  int
	Message     string
	FromBackend bool // Message is the backend's own plain-string error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// newAPIError extracts the backend's "error" field when it is a plain string. Structured
// payloads are never surfaced verbatim.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error  any `json:"error"`
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []any{payload.Error, payload.Detail} {
			if s, ok := candidate.(string); ok && strings.TrimSpace(s) != "" {
				return &APIError{StatusCode: status, Message: s, FromBackend: true}
			}
		}
	}
	message := http.StatusText(status)
	if message == "" {
		message = "request failed"
	}
	return &APIError{StatusCode: status, Message: message}
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
