package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	apptentity "groombook-api/modules/appointment/entity"
	"groombook-api/modules/calendarsync/provider"
)

// BuildEventPayload renders an appointment into the provider-neutral event.
// Pure function: same appointment in, same payload out.
func BuildEventPayload(appt *apptentity.AppointmentForSync) *provider.EventPayload {
	summary := fmt.Sprintf("%s — %s (%s)", appt.ServiceName, appt.PetName, appt.CustomerName)

	var desc strings.Builder
	fmt.Fprintf(&desc, "Customer: %s", appt.CustomerName)
	if appt.CustomerPhone != "" {
		fmt.Fprintf(&desc, "\nPhone: %s", appt.CustomerPhone)
	}
	fmt.Fprintf(&desc, "\nPet: %s", appt.PetName)
	if appt.PetSize != "" {
		fmt.Fprintf(&desc, " (%s)", appt.PetSize)
	}
	fmt.Fprintf(&desc, "\nService: %s (%d min)", appt.ServiceName, appt.ServiceDurationMin)
	if len(appt.AddonNames) > 0 {
		fmt.Fprintf(&desc, "\nAdd-ons: %s (+%d min)", strings.Join(appt.AddonNames, ", "), appt.AddonDurationMin)
	}
	if appt.Notes != "" {
		fmt.Fprintf(&desc, "\nNotes: %s", appt.Notes)
	}

	return &provider.EventPayload{
		Summary:       summary,
		Description:   desc.String(),
		Start:         appt.ScheduledStart,
		End:           appt.ScheduledEnd(),
		Timezone:      appt.Timezone,
		AttendeeEmail: appt.CustomerEmail,
	}
}

// Fingerprint hashes the fields that appear on the remote event. A matching
// fingerprint on a non-forced push means nothing visible changed and the
// update can be skipped.
func Fingerprint(p *provider.EventPayload) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		p.Summary, p.Description,
		p.Start.UTC().Format(time.RFC3339), p.End.UTC().Format(time.RFC3339),
		p.Timezone, p.AttendeeEmail)
	return hex.EncodeToString(h.Sum(nil))
}
