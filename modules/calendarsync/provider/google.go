package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"groombook-api/core/constants"
	"groombook-api/core/logger"
)

const (
	googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"
	googleCalendarListAPI = googleCalendarAPIBase + "/users/me/calendarList"
	googleUserInfoAPI     = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleRevokeAPI       = "https://oauth2.googleapis.com/revoke"
)

var oauthScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Client is the outbound boundary to the external calendar service. Every
// method returns *Error on failure so callers classify without string
// matching.
type Client interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	RevokeToken(ctx context.Context, token string) error
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
	ListCalendars(ctx context.Context, accessToken string) ([]CalendarInfo, error)
	CreateEvent(ctx context.Context, accessToken, calendarID string, payload *EventPayload) (string, error)
	UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, payload *EventPayload) error
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (c GoogleConfig) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

type googleClient struct {
	oauth *oauth2.Config
	http  *http.Client
}

func NewGoogleClient(cfg GoogleConfig) Client {
	return &googleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       oauthScopes,
			Endpoint:     google.Endpoint,
		},
		http: &http.Client{Timeout: constants.ProviderTimeout},
	}
}

func (g *googleClient) AuthCodeURL(state string) string {
	// offline + consent so a refresh token is issued even on re-connects.
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (g *googleClient) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ProviderTimeout)
	defer cancel()

	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, classifyOAuthError(err, "token exchange")
	}
	return fromOAuth2Token(tok), nil
}

func (g *googleClient) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ProviderTimeout)
	defer cancel()

	src := g.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyOAuthError(err, "token refresh")
	}
	return fromOAuth2Token(tok), nil
}

func (g *googleClient) RevokeToken(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.ProviderTimeout)
	defer cancel()

	data := url.Values{}
	data.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeAPI, strings.NewReader(data.Encode()))
	if err != nil {
		return wrapTransport(err, "token revoke")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return wrapTransport(err, "token revoke")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return nil
}

func (g *googleClient) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	var info UserInfo
	if err := g.doJSON(ctx, http.MethodGet, googleUserInfoAPI, accessToken, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (g *googleClient) ListCalendars(ctx context.Context, accessToken string) ([]CalendarInfo, error) {
	var list struct {
		Items []CalendarInfo `json:"items"`
	}
	if err := g.doJSON(ctx, http.MethodGet, googleCalendarListAPI, accessToken, nil, &list); err != nil {
		return nil, err
	}

	writable := make([]CalendarInfo, 0, len(list.Items))
	for _, cal := range list.Items {
		if cal.Writable() {
			writable = append(writable, cal)
		}
	}
	return writable, nil
}

func (g *googleClient) CreateEvent(ctx context.Context, accessToken, calendarID string, payload *EventPayload) (string, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", googleCalendarAPIBase, url.PathEscape(calendarID))

	var created struct {
		ID string `json:"id"`
	}
	if err := g.doJSON(ctx, http.MethodPost, endpoint, accessToken, eventBody(payload), &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &Error{Type: ErrorTypeUnknown, Message: "event created without an id"}
	}
	return created.ID, nil
}

func (g *googleClient) UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, payload *EventPayload) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		googleCalendarAPIBase, url.PathEscape(calendarID), url.PathEscape(eventID))
	return g.doJSON(ctx, http.MethodPut, endpoint, accessToken, eventBody(payload), nil)
}

func (g *googleClient) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		googleCalendarAPIBase, url.PathEscape(calendarID), url.PathEscape(eventID))
	return g.doJSON(ctx, http.MethodDelete, endpoint, accessToken, nil, nil)
}

// eventBody renders the provider-neutral payload into the Google Calendar
// wire shape.
func eventBody(p *EventPayload) map[string]interface{} {
	body := map[string]interface{}{
		"summary":     p.Summary,
		"description": p.Description,
		"start": map[string]string{
			"dateTime": p.Start.Format(time.RFC3339),
			"timeZone": p.Timezone,
		},
		"end": map[string]string{
			"dateTime": p.End.Format(time.RFC3339),
			"timeZone": p.Timezone,
		},
	}
	if p.AttendeeEmail != "" {
		body["attendees"] = []map[string]string{
			{"email": p.AttendeeEmail},
		}
	}
	return body
}

func (g *googleClient) doJSON(ctx context.Context, method, endpoint, accessToken string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, constants.ProviderTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Type: ErrorTypeValidation, Message: "failed to encode request body", Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return wrapTransport(err, method+" "+endpoint)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return wrapTransport(err, method+" "+endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Type: ErrorTypeUnknown, Message: "failed to decode provider response", Err: err}
		}
	}
	return nil
}

// readAPIError extracts Google's structured error body and classifies it.
func readAPIError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}

	reason := ""
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
		if len(apiErr.Error.Errors) > 0 {
			reason = apiErr.Error.Errors[0].Reason
		}
	}

	logger.Debug("Provider:APIError", "status", resp.StatusCode, "reason", reason, "message", message)
	return classifyHTTP(resp.StatusCode, reason, message)
}

// fromOAuth2Token maps the oauth2 token shape onto ours. RefreshToken may be
// empty on refresh responses; callers keep their stored one in that case.
func fromOAuth2Token(tok *oauth2.Token) *Token {
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// classifyOAuthError maps oauth2 endpoint failures. invalid_grant means the
// refresh token itself was rejected: auth class, reconnect required.
func classifyOAuthError(err error, operation string) *Error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		reason := retrieveErr.ErrorCode
		if reason == "" {
			var body struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(retrieveErr.Body, &body) == nil {
				reason = body.Error
			}
		}

		statusCode := 0
		if retrieveErr.Response != nil {
			statusCode = retrieveErr.Response.StatusCode
		}
		return classifyHTTP(statusCode, reason, operation+" rejected by provider")
	}
	return wrapTransport(err, operation)
}
