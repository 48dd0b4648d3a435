package entity

import (
	"github.com/lib/pq"

	"groombook-api/core/entity"
)

// SyncSettings is a single-row table controlling push eligibility. The
// default allow-list covers the statuses that represent a held time slot.
type SyncSettings struct {
	EligibleStatuses     pq.StringArray `db:"eligible_statuses" json:"eligible_statuses"`
	SyncPastAppointments bool           `db:"sync_past_appointments" json:"sync_past_appointments"`
	NotifyOnFailure      bool           `db:"notify_on_failure" json:"notify_on_failure"`
	entity.BaseEntity
}

func (SyncSettings) TableName() string {
	return "calendar_sync_settings"
}

func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		EligibleStatuses:     pq.StringArray{"confirmed", "checked_in", "in_progress"},
		SyncPastAppointments: false,
		NotifyOnFailure:      true,
	}
}
