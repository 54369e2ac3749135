package accuweather

import (
	"fmt"
	"net/http"
)

// APIError is a non-200 response from the weather service
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s: status %d, body: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsTransient reports whether a later re-run could succeed. The client
// itself never retries.
func (e *APIError) IsTransient() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// MissingKeyError means the response lacked an expected field
type MissingKeyError struct {
	Endpoint string
	Key      string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("API error: %s: response is missing %q", e.Endpoint, e.Key)
}

func (e *MissingKeyError) IsTransient() bool {
	return false
}
