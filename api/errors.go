// ABOUTME: Error types for backend calls
// ABOUTME: Separates transport failures from HTTP errors carrying server detail
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/harperreed/leadlab/models"
)

var (
	// ErrNetwork wraps failures where no response was received.
	ErrNetwork = errors.New("network error")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status    int
	Detail    string
	Method    string
	Path      string
	RequestID string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is lets callers match status classes with errors.Is.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// StatusOf returns the HTTP status behind err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage renders err for a toast. Server detail wins; otherwise the
// action names what failed.
func UserMessage(err error, action string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, ErrNetwork):
		return fmt.Sprintf("Failed to %s: cannot reach the server", action)
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Failed to %s (%d)", action, apiErr.Status)
	}
	if models.IsValidation(err) {
		return capitalize(err.Error())
	}
	return fmt.Sprintf("Failed to %s", action)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// parseDetail pulls a human readable message out of an error body. It knows
// {"detail": "..."}, {"detail": [{"loc": [...], "msg": "..."}]},
// {"message": "..."} and {"error": "...", "error_description": "..."}.
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		if len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
			return trimmed
		}
		return ""
	}

	if raw, ok := envelope["detail"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if json.Unmarshal(raw, &items) == nil && len(items) > 0 {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if field := lastLoc(item.Loc); field != "" {
					parts = append(parts, field+": "+item.Msg)
				} else {
					parts = append(parts, item.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	for _, key := range []string{"message", "error_description", "error"} {
		var s string
		if raw, ok := envelope[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok && s != "body" {
		return s
	}
	return ""
}
