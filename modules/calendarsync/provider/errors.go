package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorType is the authoritative failure classification for provider calls.
// The mapping is centralized here so no caller ever matches on error text:
//
//	auth:       401, or 403/400 with an invalid_grant / invalid credential
//	            reason; requires reconnect, never auto-retried
//	rate_limit: 429, or 403 with a rateLimitExceeded-family reason; retryable
//	            and feeds the auto-pause signal
//	network:    transport failures and timeouts; retryable
//	validation: 400/422 payload rejections; requires data correction, never
//	            retried
//	unknown:    anything else (5xx included); retried conservatively
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is the tagged failure every provider call returns.
type Error struct {
	Type       ErrorType
	StatusCode int
	Reason     string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s error (status %d, reason %q): %s", e.Type, e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("provider %s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is worth queueing for retry.
func (e *Error) Retryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// NotFound reports a 404/410: the remote event is already gone, which
// delete and resync paths tolerate.
func (e *Error) NotFound() bool {
	return e.StatusCode == 404 || e.StatusCode == 410
}

// AsError normalizes any error from the provider layer into *Error.
func AsError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return wrapTransport(err, "")
}

// classifyHTTP maps a non-2xx Google API response onto the taxonomy.
func classifyHTTP(statusCode int, reason, message string) *Error {
	e := &Error{
		StatusCode: statusCode,
		Reason:     reason,
		Message:    message,
	}

	switch {
	case statusCode == 401:
		e.Type = ErrorTypeAuth
	case reason == "rateLimitExceeded" || reason == "userRateLimitExceeded" ||
		reason == "quotaExceeded" || statusCode == 429:
		e.Type = ErrorTypeRateLimit
	case statusCode == 403 && (reason == "insufficientPermissions" || reason == "forbidden"):
		e.Type = ErrorTypeAuth
	case statusCode == 400 && isAuthReason(reason):
		e.Type = ErrorTypeAuth
	case statusCode == 400 || statusCode == 422:
		e.Type = ErrorTypeValidation
	case statusCode == 404 || statusCode == 410:
		// Not found is validation-class for create targets but tolerated by
		// delete paths; callers branch on NotFound().
		e.Type = ErrorTypeValidation
	default:
		e.Type = ErrorTypeUnknown
	}
	return e
}

func isAuthReason(reason string) bool {
	switch reason {
	case "invalid_grant", "invalid_token", "unauthorized_client", "authError", "invalid_client":
		return true
	}
	return false
}

// wrapTransport classifies errors that never produced an HTTP status:
// timeouts, DNS failures, connection resets. All of them are network-class.
func wrapTransport(err error, operation string) *Error {
	msg := "provider call failed"
	if operation != "" {
		msg = operation + " failed"
	}

	e := &Error{
		Type:    ErrorTypeNetwork,
		Message: msg,
		Err:     err,
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Reason = "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Reason = "timeout"
	case errors.As(err, &urlErr):
		e.Reason = "transport"
	default:
		if err != nil && strings.Contains(err.Error(), "timeout") {
			e.Reason = "timeout"
		} else {
			e.Reason = "transport"
		}
	}
	return e
}
