package entity

import (
	"github.com/google/uuid"

	"groombook-api/core/entity"
)

// Notification types the sync engine emits.
const (
	TypeSyncFailed            = "sync_failed"
	TypeSyncReconnectRequired = "sync_reconnect_required"
)

type Notification struct {
	AdminID uuid.UUID    `db:"admin_id" json:"admin_id"`
	Title   string       `db:"title" json:"title"`
	Message string       `db:"message" json:"message"`
	Type    string       `db:"type" json:"type"`
	Data    entity.JSONB `db:"data" json:"data"`
	IsRead  bool         `db:"is_read" json:"is_read"`
	entity.BaseEntity
}

func (Notification) TableName() string {
	return "notifications"
}

type PaginatedNotificationEntity = entity.Pagination[Notification]
