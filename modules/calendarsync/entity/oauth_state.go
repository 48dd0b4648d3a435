package entity

import (
	"time"

	"github.com/google/uuid"

	"groombook-api/core/entity"
)

// OAuthState is a short-lived DB-backed state token carrying the admin who
// initiated the connect flow through the OAuth redirect round-trip.
type OAuthState struct {
	State     string    `db:"state"`
	AdminID   uuid.UUID `db:"admin_id"`
	ExpiresAt time.Time `db:"expires_at"`
	entity.BaseEntity
}

func (OAuthState) TableName() string {
	return "calendar_oauth_states"
}
