package entity

import (
	"time"

	"github.com/google/uuid"

	"groombook-api/core/entity"
)

// SyncDirectionPush is the only direction implemented; the column exists so
// a future pull sync can share the table.
const SyncDirectionPush = "push"

// EventMapping is the durable appointment ↔ Google event correspondence.
// Unique on (connection_id, appointment_id); the constraint doubles as the
// duplicate-create guard for concurrent pushes of one appointment.
type EventMapping struct {
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	ConnectionID  uuid.UUID `db:"connection_id" json:"connection_id"`
	GoogleEventID string    `db:"google_event_id" json:"google_event_id"`
	SyncDirection string    `db:"sync_direction" json:"sync_direction"`
	// Fingerprint of the last pushed payload; an identical fingerprint on a
	// non-forced push means the update can be skipped.
	Fingerprint  string    `db:"fingerprint" json:"-"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`
	entity.BaseEntity
}

func (EventMapping) TableName() string {
	return "calendar_event_mappings"
}
