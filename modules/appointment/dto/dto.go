package dto

import "time"

type RescheduleRequest struct {
	ScheduledStart time.Time `json:"scheduled_start" validate:"required"`
	Timezone       string    `json:"timezone" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
