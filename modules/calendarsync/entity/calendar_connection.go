package entity

import (
	"time"

	"github.com/google/uuid"

	"groombook-api/core/entity"
)

// Pause reasons recorded on auto_sync_paused connections.
const (
	PauseReasonQuotaNearLimit    = "quota_near_limit"
	PauseReasonRateLimited       = "rate_limited"
	PauseReasonReconnectRequired = "reconnect_required"
	PauseReasonManual            = "manual"
)

// CalendarConnection links one admin account to one Google calendar.
// Tokens are stored encrypted; only core/secrets ever sees plaintext.
// At most one active connection exists for the whole business (partial
// unique index where is_active).
type CalendarConnection struct {
	OwnerAdminID       uuid.UUID  `db:"owner_admin_id" json:"owner_admin_id"`
	AccessTokenEnc     string     `db:"access_token_enc" json:"-"`
	RefreshTokenEnc    string     `db:"refresh_token_enc" json:"-"`
	TokenExpiresAt     time.Time  `db:"token_expires_at" json:"token_expires_at"`
	GoogleCalendarID   string     `db:"google_calendar_id" json:"google_calendar_id"`
	GoogleAccountEmail string     `db:"google_account_email" json:"google_account_email"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	AutoSyncPaused     bool       `db:"auto_sync_paused" json:"auto_sync_paused"`
	PauseReason        *string    `db:"pause_reason" json:"pause_reason,omitempty"`
	LastSyncAt         *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	entity.BaseEntity
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}
