package glpi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/go-glpi/internal/api"
)

// Sentinel errors for common failure modes.
var (
	ErrNoBaseURL      = errors.New("glpi: no base URL configured")
	ErrNoCredentials  = errors.New("glpi: no credentials configured")
	ErrNoSessionToken = errors.New("glpi: initSession returned no session token")
	ErrEmptyItemType  = errors.New("glpi: item type cannot be empty")
	ErrNoItemIDs      = errors.New("glpi: no item IDs given")
)

// APIError is returned when GLPI answers with a non-2xx status.
// GLPI error bodies are a [reason, message] pair; when the body has
// another shape Reason is empty and Message holds the raw body.
type APIError struct {
	StatusCode int
	StatusText string
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("glpi: API error %d %s: %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("glpi: API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates authentication failure (401/403).
// A 401 on a live session means the session token has expired.
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("glpi: authentication failed (%d %s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("glpi: authentication failed (%d): %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// NotFoundError indicates the requested item was not found (404).
type NotFoundError struct {
	APIError
	ItemType string
	ItemID   int
}

func (e *NotFoundError) Error() string {
	if e.ItemType != "" && e.ItemID != 0 {
		return fmt.Sprintf("glpi: %s not found: %d", e.ItemType, e.ItemID)
	}
	return fmt.Sprintf("glpi: resource not found: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *NotFoundError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ValidationError indicates invalid request data (400), or a request
// rejected before it was sent.
type ValidationError struct {
	APIError
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("glpi: bad request %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("glpi: bad request: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ValidationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// RateLimitError indicates the API rate limit was exceeded (429).
type RateLimitError struct {
	APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("glpi: rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "glpi: rate limit exceeded"
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *RateLimitError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ServerError indicates an internal server error (5xx).
type ServerError struct {
	APIError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("glpi: server error %d: %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ServerError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// TransportError is returned when no response was received at all.
// Code carries a socket-style code such as ECONNABORTED when one applies.
type TransportError struct {
	Code    string
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("glpi: transport error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("glpi: transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(err error) error {
	return &TransportError{
		Code:    api.ErrorCode(err),
		Message: err.Error(),
		Err:     err,
	}
}

// IsUnauthorized reports whether err is a 401 from GLPI, which on a live
// session means the session token is no longer valid.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// parseError converts an error response into the appropriate error type.
func parseError(resp *api.Response) error {
	base := APIError{
		StatusCode: resp.StatusCode,
		StatusText: resp.StatusText,
	}
	base.Reason, base.Message = parseErrorBody(resp.Body)
	if base.Message == "" {
		base.Message = resp.StatusText
	}

	statusCode := resp.StatusCode
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &AuthenticationError{APIError: base}
	case statusCode == http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case statusCode == http.StatusBadRequest:
		return &ValidationError{APIError: base}
	case statusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			APIError:   base,
			RetryAfter: parseRetryAfter(resp.Headers.Get("Retry-After")),
		}
	case statusCode >= http.StatusInternalServerError:
		return &ServerError{APIError: base}
	default:
		return &base
	}
}

// parseErrorBody extracts GLPI's [reason, message] pair. Any other body
// is returned whole as the message.
func parseErrorBody(body []byte) (reason, message string) {
	var pair []any
	if err := json.Unmarshal(body, &pair); err == nil && len(pair) > 0 {
		reason = fmt.Sprint(pair[0])
		if len(pair) > 1 {
			message = fmt.Sprint(pair[1])
		}
		return reason, message
	}
	return "", strings.TrimSpace(string(body))
}

// parseRetryAfter parses the Retry-After header value.
// It handles both seconds (integer) and HTTP-date formats.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}
