package entity

import (
	"time"

	"github.com/google/uuid"

	"groombook-api/core/entity"
)

// RetryQueueEntry is the durable backlog of failed pushes. One row per
// appointment; retry_count never passes the configured cap. Entries at the
// cap are flagged exhausted and kept for manual intervention instead of
// being deleted.
type RetryQueueEntry struct {
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Operation     string     `db:"operation" json:"operation"`
	RetryCount    int        `db:"retry_count" json:"retry_count"`
	NextRetryAt   time.Time  `db:"next_retry_at" json:"next_retry_at"`
	LastRetryAt   *time.Time `db:"last_retry_at" json:"last_retry_at,omitempty"`
	ErrorType     string     `db:"error_type" json:"error_type"`
	ErrorMessage  string     `db:"error_message" json:"error_message"`
	Exhausted     bool       `db:"exhausted" json:"exhausted"`
	// Lease taken by a scanner instance while it resubmits the entry, so
	// overlapping scans never double-process a row.
	ClaimedUntil *time.Time `db:"claimed_until" json:"-"`
	entity.BaseEntity
}

func (RetryQueueEntry) TableName() string {
	return "calendar_sync_retry_queue"
}

type PaginatedRetryQueueEntity = entity.Pagination[RetryQueueEntry]
