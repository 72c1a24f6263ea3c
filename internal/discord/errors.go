package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failed API call by what the caller should do about it.
type Kind int

const (
	// KindUnknown covers network errors, timeouts and unexpected statuses.
	KindUnknown Kind = iota
	// KindUnauthorized means the credential is invalid or expired.
	KindUnauthorized
	// KindForbidden means the credential lacks a permission for this call.
	KindForbidden
	// KindNotFound means the resource does not exist (anymore).
	KindNotFound
	// KindRateLimited means the caller must wait RetryAfter before retrying.
	KindRateLimited
	// KindBadRequest means the payload was rejected.
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// APIError is returned by every Client call that does not succeed.
type APIError struct {
	Kind       Kind
	Method     string
	Path       string
	Status     int
	Code       int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discord %s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("discord %s %s: %d %s", e.Method, e.Path, e.Status, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Kind == KindRateLimited {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err. Errors that did not come from the
// API client are KindUnknown.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// RetryAfter returns the wait hint carried by a rate limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited {
		return apiErr.RetryAfter, true
	}
	return 0, false
}

// IsRateLimited reports whether err is a rate limit error.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusBadRequest:
		return KindBadRequest
	default:
		return KindUnknown
	}
}
