package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// A partial listing must never be mistaken for the full set: the caller
// infers closure from absence.
var (
	// ErrIncompleteResults is a search response flagged incomplete_results.
	ErrIncompleteResults = errors.New("github: search returned incomplete results")
	// ErrTruncated is a listing that still had pages after maxPages.
	ErrTruncated = errors.New("github: result list truncated")
)

// APIError is a non-2xx response from the GitHub REST API.
type APIError struct {
	StatusCode       int
	Message          string
	DocumentationURL string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 response, which GitHub
// returns for a missing, expired or revoked token.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsRateLimited reports whether err is a rate limit response. GitHub
// answers 403 for the primary limit and 429 for secondary limits.
func IsRateLimited(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == http.StatusTooManyRequests ||
		(apiError.StatusCode == http.StatusForbidden && isRateLimitMessage(apiError.Message))
}

func hasStatus(err error, status int) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == status
}

func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "abuse detection")
}

// parseAPIErrorFromBody builds an APIError from a response body. Bodies
// that are not GitHub's JSON error shape fall back to the raw text.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	var payload struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(statusCode)
		}
		if len(message) > 200 {
			message = message[:200]
		}
		return &APIError{StatusCode: statusCode, Message: message}
	}
	return &APIError{
		StatusCode:       statusCode,
		Message:          payload.Message,
		DocumentationURL: payload.DocumentationURL,
	}
}
