package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		reason     string
		want       ErrorType
	}{
		{"unauthorized", 401, "", ErrorTypeAuth},
		{"too many requests", 429, "", ErrorTypeRateLimit},
		{"per-user rate limit", 403, "userRateLimitExceeded", ErrorTypeRateLimit},
		{"project rate limit", 403, "rateLimitExceeded", ErrorTypeRateLimit},
		{"daily quota", 403, "quotaExceeded", ErrorTypeRateLimit},
		{"insufficient scope", 403, "insufficientPermissions", ErrorTypeAuth},
		{"revoked grant", 400, "invalid_grant", ErrorTypeAuth},
		{"bad payload", 400, "badRequest", ErrorTypeValidation},
		{"unprocessable", 422, "", ErrorTypeValidation},
		{"missing event", 404, "notFound", ErrorTypeValidation},
		{"already deleted", 410, "deleted", ErrorTypeValidation},
		{"server error", 500, "backendError", ErrorTypeUnknown},
		{"unavailable", 503, "", ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyHTTP(tt.statusCode, tt.reason, "boom")
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.statusCode, err.StatusCode)
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, (&Error{Type: ErrorTypeRateLimit}).Retryable())
	assert.True(t, (&Error{Type: ErrorTypeNetwork}).Retryable())
	assert.True(t, (&Error{Type: ErrorTypeUnknown}).Retryable())
	assert.False(t, (&Error{Type: ErrorTypeAuth}).Retryable())
	assert.False(t, (&Error{Type: ErrorTypeValidation}).Retryable())
}

func TestNotFound(t *testing.T) {
	assert.True(t, (&Error{StatusCode: 404}).NotFound())
	assert.True(t, (&Error{StatusCode: 410}).NotFound())
	assert.False(t, (&Error{StatusCode: 400}).NotFound())
	assert.False(t, (&Error{StatusCode: 500}).NotFound())
}

func TestWrapTransportTimeout(t *testing.T) {
	err := wrapTransport(context.DeadlineExceeded, "event create")
	assert.Equal(t, ErrorTypeNetwork, err.Type)
	assert.Equal(t, "timeout", err.Reason)
	assert.True(t, err.Retryable())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAsErrorPassthrough(t *testing.T) {
	original := &Error{Type: ErrorTypeRateLimit, StatusCode: 429}
	assert.Same(t, original, AsError(original))
}

func TestAsErrorWrapsPlainErrors(t *testing.T) {
	err := AsError(errors.New("connection reset by peer"))
	assert.Equal(t, ErrorTypeNetwork, err.Type)
	assert.True(t, err.Retryable())
}

func TestReadAPIErrorParsesGoogleBody(t *testing.T) {
	body := `{
		"error": {
			"code": 403,
			"message": "Rate Limit Exceeded",
			"errors": [{"domain": "usageLimits", "reason": "rateLimitExceeded"}]
		}
	}`
	resp := &http.Response{
		StatusCode: 403,
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	err := readAPIError(resp)
	assert.Equal(t, ErrorTypeRateLimit, err.Type)
	assert.Equal(t, "rateLimitExceeded", err.Reason)
	assert.Equal(t, "Rate Limit Exceeded", err.Message)
}

func TestReadAPIErrorNonJSONBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 502,
		Body:       io.NopCloser(strings.NewReader("Bad Gateway")),
	}

	err := readAPIError(resp)
	assert.Equal(t, ErrorTypeUnknown, err.Type)
	assert.Equal(t, "Bad Gateway", err.Message)
}

func TestClassifyOAuthErrorInvalidGrant(t *testing.T) {
	retrieveErr := &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: 400},
		Body:      []byte(`{"error":"invalid_grant","error_description":"Token has been revoked."}`),
		ErrorCode: "invalid_grant",
	}

	err := classifyOAuthError(retrieveErr, "token refresh")
	assert.Equal(t, ErrorTypeAuth, err.Type)
	assert.Equal(t, "invalid_grant", err.Reason)
	assert.False(t, err.Retryable())
}

func TestClassifyOAuthErrorBodyFallback(t *testing.T) {
	// Older token endpoints omit the structured error fields; the reason
	// still comes out of the raw body.
	retrieveErr := &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: 400},
		Body:     []byte(`{"error":"invalid_grant"}`),
	}

	err := classifyOAuthError(retrieveErr, "token refresh")
	assert.Equal(t, ErrorTypeAuth, err.Type)
	assert.Equal(t, "invalid_grant", err.Reason)
}

func TestClassifyOAuthErrorTransport(t *testing.T) {
	err := classifyOAuthError(errors.New("dial tcp: lookup oauth2.googleapis.com: no such host"), "token refresh")
	assert.Equal(t, ErrorTypeNetwork, err.Type)
}

func TestEventBody(t *testing.T) {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	payload := &EventPayload{
		Summary:       "Full Groom — Biscuit (Dana Reyes)",
		Description:   "Customer: Dana Reyes",
		Start:         start,
		End:           start.Add(time.Hour),
		Timezone:      "America/New_York",
		AttendeeEmail: "dana@example.com",
	}

	body := eventBody(payload)
	assert.Equal(t, payload.Summary, body["summary"])

	startField, ok := body["start"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "2026-09-01T14:00:00Z", startField["dateTime"])
	assert.Equal(t, "America/New_York", startField["timeZone"])

	attendees, ok := body["attendees"].([]map[string]string)
	require.True(t, ok)
	require.Len(t, attendees, 1)
	assert.Equal(t, "dana@example.com", attendees[0]["email"])
}

func TestEventBodyOmitsAttendeesWhenNoEmail(t *testing.T) {
	payload := &EventPayload{
		Summary:  "Bath Only — Rex (Sam Ortiz)",
		Start:    time.Now(),
		End:      time.Now().Add(30 * time.Minute),
		Timezone: "UTC",
	}

	_, ok := eventBody(payload)["attendees"]
	assert.False(t, ok)
}

func TestAuthCodeURLRequestsOfflineConsent(t *testing.T) {
	client := NewGoogleClient(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:7070/api/v1/calendar/callback",
	})

	authURL := client.AuthCodeURL("state-token")
	assert.Contains(t, authURL, "state=state-token")
	assert.Contains(t, authURL, "access_type=offline")
	assert.Contains(t, authURL, "prompt=consent")
	assert.Contains(t, authURL, "calendar")
}

func TestWritable(t *testing.T) {
	assert.True(t, CalendarInfo{AccessRole: "owner"}.Writable())
	assert.True(t, CalendarInfo{AccessRole: "writer"}.Writable())
	assert.False(t, CalendarInfo{AccessRole: "reader"}.Writable())
	assert.False(t, CalendarInfo{AccessRole: "freeBusyReader"}.Writable())
}
