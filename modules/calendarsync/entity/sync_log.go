package entity

import (
	"time"

	"github.com/google/uuid"

	"groombook-api/core/entity"
)

// Log operations. Appointment-level entries use create/update/delete/resync;
// connection-level entries (nil appointment_id) use connect/disconnect.
const (
	LogOpCreate     = "create"
	LogOpUpdate     = "update"
	LogOpDelete     = "delete"
	LogOpResync     = "resync"
	LogOpConnect    = "connect"
	LogOpDisconnect = "disconnect"
)

const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
	LogStatusPartial = "partial"
	LogStatusSkipped = "skipped"
)

// SyncLogEntry is the append-only audit trail of sync attempts. Rows are
// never updated, so there is no updated_at.
type SyncLogEntry struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	ConnectionID  uuid.UUID    `db:"connection_id" json:"connection_id"`
	AppointmentID *uuid.UUID   `db:"appointment_id" json:"appointment_id,omitempty"`
	Operation     string       `db:"operation" json:"operation"`
	Status        string       `db:"status" json:"status"`
	ErrorCode     *string      `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage  *string      `db:"error_message" json:"error_message,omitempty"`
	Details       entity.JSONB `db:"details" json:"details,omitempty"`
	DurationMs    int64        `db:"duration_ms" json:"duration_ms"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

func (SyncLogEntry) TableName() string {
	return "calendar_sync_logs"
}

type PaginatedSyncLogEntity = entity.Pagination[SyncLogEntry]
