package service

import (
	"context"

	"github.com/google/uuid"

	apptentity "groombook-api/modules/appointment/entity"
)

// AppointmentSource feeds the engine the flattened appointment read model.
// Implemented by the appointment module; narrowed here so the engine stays
// testable with a fake.
type AppointmentSource interface {
	GetForSync(ctx context.Context, id uuid.UUID) (*apptentity.AppointmentForSync, error)
	ListForSyncByIDs(ctx context.Context, ids []uuid.UUID) ([]apptentity.AppointmentForSync, error)
}

// AdminSource resolves admin accounts during the OAuth flow. Implemented by
// the auth module.
type AdminSource interface {
	GetAdminEmail(ctx context.Context, adminID uuid.UUID) (string, error)
	GetAdminRole(ctx context.Context, adminID uuid.UUID) (string, error)
}

// FailureNotifier tells the connection owner about failures that need a
// human. Implemented by the notification module; all calls are best-effort.
type FailureNotifier interface {
	NotifySyncFailure(ctx context.Context, adminID uuid.UUID, appointmentID uuid.UUID, errType, errMsg string)
	NotifyReconnectRequired(ctx context.Context, adminID uuid.UUID)
}
