package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Appointment statuses over the booking lifecycle.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// AppointmentForSync is the flattened read model the calendar engine
// consumes. The repository folds the customer, pet, service and addon
// joins into this one record so the engine never touches booking tables.
type AppointmentForSync struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	CustomerName       string         `db:"customer_name" json:"customer_name"`
	CustomerEmail      string         `db:"customer_email" json:"customer_email"`
	CustomerPhone      string         `db:"customer_phone" json:"customer_phone"`
	PetName            string         `db:"pet_name" json:"pet_name"`
	PetSize            string         `db:"pet_size" json:"pet_size"`
	ServiceName        string         `db:"service_name" json:"service_name"`
	ServiceDurationMin int            `db:"service_duration_min" json:"service_duration_min"`
	AddonNames         pq.StringArray `db:"addon_names" json:"addon_names"`
	AddonDurationMin   int            `db:"addon_duration_min" json:"addon_duration_min"`
	ScheduledStart     time.Time      `db:"scheduled_start" json:"scheduled_start"`
	Timezone           string         `db:"timezone" json:"timezone"`
	Status             string         `db:"status" json:"status"`
	Notes              string         `db:"notes" json:"notes"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// TotalDurationMin is the booked slot length including addons.
func (a *AppointmentForSync) TotalDurationMin() int {
	return a.ServiceDurationMin + a.AddonDurationMin
}

// ScheduledEnd derives the slot end from the service and addon durations.
func (a *AppointmentForSync) ScheduledEnd() time.Time {
	return a.ScheduledStart.Add(time.Duration(a.TotalDurationMin()) * time.Minute)
}

// IsPast reports whether the appointment start is already behind now.
func (a *AppointmentForSync) IsPast(now time.Time) bool {
	return a.ScheduledStart.Before(now)
}
