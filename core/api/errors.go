package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnauthorized reports a request rejected for missing or expired
// credentials. Callers decide what to do about it (usually re-login).
var ErrUnauthorized = errors.New("authentication required")

// APIError is a non-OK response from the service with its user-facing
// detail message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// responseError turns a non-OK response into an error, draining the body for
// the detail message the service attaches to failures.
func responseError(resp *http.Response) error {
	var detail struct {
		Detail string `json:"detail"`
	}
	if body, err := io.ReadAll(resp.Body); err == nil {
		_ = json.Unmarshal(body, &detail)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if detail.Detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail.Detail)
		}
		return ErrUnauthorized
	}

	return &APIError{StatusCode: resp.StatusCode, Message: detail.Detail}
}
