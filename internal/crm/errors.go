package crm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in, run: crm-cli login <email>")
	ErrSessionExpired = errors.New("session expired, run: crm-cli login <email>")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// newAPIError pulls a readable message out of the usual DRF error shapes:
// {"detail": "..."}, {"error": "..."}, {"field": ["..."]}
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	for _, key := range []string{"detail", "error", "message"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			apiErr.Message = msg
			return apiErr
		}
	}

	var parts []string
	for field, v := range payload {
		switch val := v.(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", field, val))
		case []interface{}:
			for _, m := range val {
				parts = append(parts, fmt.Sprintf("%s: %v", field, m))
			}
		}
	}
	if len(parts) > 0 {
		sort.Strings(parts)
		apiErr.Message = strings.Join(parts, "; ")
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
