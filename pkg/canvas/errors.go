package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a terminal error response from the API. It carries
// enough context to diagnose a failure without re-running with debug hooks.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Messages   []string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.StatusCode, strings.Join(e.Messages, "; "))
	}

	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.StatusCode, string(e.Body))
}

// errorEnvelope is the {"errors":[{"message":...}]} body shape.
type errorEnvelope struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Message string `json:"message"`
}

// NewAPIError builds an APIError from a response, extracting any error
// messages the body carries.
func NewAPIError(method, url string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		Body:       body,
	}

	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil {
		for _, e := range envelope.Errors {
			if e.Message != "" {
				apiErr.Messages = append(apiErr.Messages, e.Message)
			}
		}

		if len(apiErr.Messages) == 0 && envelope.Message != "" {
			apiErr.Messages = append(apiErr.Messages, envelope.Message)
		}
	}

	return apiErr
}

// Static errors that can be wrapped with context.
var (
	ErrSubdomainRequired   = errors.New("subdomain or base URL is required")
	ErrTokenRequired       = errors.New("access token is required")
	ErrMissingIdentifier   = errors.New("node has no identifier")
	ErrUnknownKind         = errors.New("unknown resource kind")
	ErrNotInCollection     = errors.New("node not found in collection")
	ErrSchedulerClosed     = errors.New("scheduler is closed")
	ErrAttemptsExhausted   = errors.New("retry attempts exhausted")
	ErrNATSConfigRequired  = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCache    = errors.New("unsupported cache type")
	ErrCacheDisabled       = errors.New("cache disabled")
	ErrCacheEntryNotFound  = errors.New("cache entry not found")
	ErrCacheEntryExpired   = errors.New("cache entry expired")
	ErrInvalidCacheCleanup = errors.New("invalid cache cleanup interval")
)

// IsThrottle reports whether a status signals quota exhaustion. Canvas uses
// 403 with a rate-limit body; 429 is accepted for proxies that translate it.
func IsThrottle(status int, body []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}

	return status == http.StatusForbidden && strings.Contains(string(body), "Rate Limit Exceeded")
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsUnauthorized checks if the error is an authentication error.
func IsUnauthorized(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}

	return false
}

// IsClientError reports whether the error is a non-retryable 4xx.
func IsClientError(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
	}

	return false
}
