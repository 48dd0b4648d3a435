package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apptentity "groombook-api/modules/appointment/entity"
)

func sampleAppointment() *apptentity.AppointmentForSync {
	return &apptentity.AppointmentForSync{
		ID:                 uuid.New(),
		CustomerName:       "Dana Reyes",
		CustomerEmail:      "dana@example.com",
		CustomerPhone:      "+1-555-0142",
		PetName:            "Biscuit",
		PetSize:            "medium",
		ServiceName:        "Full Groom",
		ServiceDurationMin: 45,
		AddonNames:         pq.StringArray{"Nail Trim", "Teeth Brushing"},
		AddonDurationMin:   15,
		ScheduledStart:     time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		Timezone:           "America/New_York",
		Status:             apptentity.StatusConfirmed,
		Notes:              "Nervous around dryers",
	}
}

func TestBuildEventPayload(t *testing.T) {
	appt := sampleAppointment()
	payload := BuildEventPayload(appt)

	assert.Equal(t, "Full Groom — Biscuit (Dana Reyes)", payload.Summary)
	assert.Contains(t, payload.Description, "Customer: Dana Reyes")
	assert.Contains(t, payload.Description, "Phone: +1-555-0142")
	assert.Contains(t, payload.Description, "Pet: Biscuit (medium)")
	assert.Contains(t, payload.Description, "Service: Full Groom (45 min)")
	assert.Contains(t, payload.Description, "Add-ons: Nail Trim, Teeth Brushing (+15 min)")
	assert.Contains(t, payload.Description, "Notes: Nervous around dryers")

	assert.Equal(t, appt.ScheduledStart, payload.Start)
	// Slot length is service plus addon durations.
	assert.Equal(t, appt.ScheduledStart.Add(60*time.Minute), payload.End)
	assert.Equal(t, "America/New_York", payload.Timezone)
	assert.Equal(t, "dana@example.com", payload.AttendeeEmail)
}

func TestBuildEventPayloadOmitsEmptySections(t *testing.T) {
	appt := sampleAppointment()
	appt.CustomerPhone = ""
	appt.AddonNames = nil
	appt.AddonDurationMin = 0
	appt.Notes = ""

	payload := BuildEventPayload(appt)

	assert.NotContains(t, payload.Description, "Phone:")
	assert.NotContains(t, payload.Description, "Add-ons:")
	assert.NotContains(t, payload.Description, "Notes:")
	assert.Equal(t, appt.ScheduledStart.Add(45*time.Minute), payload.End)
}

func TestFingerprintStable(t *testing.T) {
	a := BuildEventPayload(sampleAppointment())
	b := BuildEventPayload(sampleAppointment())

	require.NotEmpty(t, Fingerprint(a))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := BuildEventPayload(sampleAppointment())

	rescheduled := sampleAppointment()
	rescheduled.ScheduledStart = rescheduled.ScheduledStart.Add(time.Hour)
	assert.NotEqual(t, Fingerprint(base), Fingerprint(BuildEventPayload(rescheduled)))

	edited := sampleAppointment()
	edited.Notes = "Prefers warm water"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(BuildEventPayload(edited)))
}

func TestFingerprintIgnoresStatus(t *testing.T) {
	confirmed := sampleAppointment()
	checkedIn := sampleAppointment()
	checkedIn.Status = apptentity.StatusCheckedIn

	// Status gates eligibility but never appears on the remote event, so it
	// must not force an update by itself.
	assert.Equal(t,
		Fingerprint(BuildEventPayload(confirmed)),
		Fingerprint(BuildEventPayload(checkedIn)))
}
