package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ConnectStartResponse carries the provider consent URL for the frontend
// to redirect to.
type ConnectStartResponse struct {
	AuthURL string `json:"auth_url"`
}

type ConnectionStatusResponse struct {
	Connected          bool       `json:"connected"`
	ConnectionID       *uuid.UUID `json:"connection_id,omitempty"`
	GoogleAccountEmail string     `json:"google_account_email,omitempty"`
	GoogleCalendarID   string     `json:"google_calendar_id,omitempty"`
	AutoSyncPaused     bool       `json:"auto_sync_paused"`
	PauseReason        *string    `json:"pause_reason,omitempty"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
	MappedAppointments int        `json:"mapped_appointments"`
	PendingRetries     int        `json:"pending_retries"`
	SuccessLast24h     int        `json:"success_last_24h"`
	FailedLast24h      int        `json:"failed_last_24h"`
}

// SyncRequest triggers a manual push for one appointment.
type SyncRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
	Force         bool      `json:"force"`
}

type ResyncRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
}

type BatchStatusRequest struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids" validate:"required"`
}

// AppointmentSyncStatus is one row of the batch status response.
type AppointmentSyncStatus struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Synced        bool       `json:"synced"`
	GoogleEventID string     `json:"google_event_id,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	RetryPending  bool       `json:"retry_pending"`
	RetryCount    int        `json:"retry_count,omitempty"`
	Exhausted     bool       `json:"exhausted,omitempty"`
	LastErrorType string     `json:"last_error_type,omitempty"`
}

type UpdateSettingsRequest struct {
	EligibleStatuses     pq.StringArray `json:"eligible_statuses" validate:"required,min=1"`
	SyncPastAppointments bool           `json:"sync_past_appointments"`
	NotifyOnFailure      bool           `json:"notify_on_failure"`
}
