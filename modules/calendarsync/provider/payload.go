package provider

import "time"

// EventPayload is the provider-neutral event the mapper produces. Building
// it is pure; only the client turns it into wire format.
type EventPayload struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	Timezone      string
	AttendeeEmail string
}

// Token is the credential pair returned by exchange and refresh calls.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type UserInfo struct {
	Email string
}

type CalendarInfo struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Primary    bool   `json:"primary"`
	AccessRole string `json:"accessRole"`
}

// Writable reports whether the connected account can create events on the
// calendar.
func (c CalendarInfo) Writable() bool {
	return c.AccessRole == "owner" || c.AccessRole == "writer"
}
