package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/modules/appointment/entity"
)

// forSyncQuery folds the booking joins into the flat sync read model.
// Addon names and durations aggregate across the junction table; COALESCE
// keeps appointments without addons or notes well-formed.
const forSyncQuery = `
	SELECT a.id,
	       c.full_name                                   AS customer_name,
	       COALESCE(c.email, '')                         AS customer_email,
	       COALESCE(c.phone, '')                         AS customer_phone,
	       p.name                                        AS pet_name,
	       COALESCE(p.size, '')                          AS pet_size,
	       s.name                                        AS service_name,
	       s.duration_min                                AS service_duration_min,
	       COALESCE(ad.names, '{}')                      AS addon_names,
	       COALESCE(ad.duration_min, 0)                  AS addon_duration_min,
	       a.scheduled_start,
	       a.timezone,
	       a.status,
	       COALESCE(a.notes, '')                         AS notes,
	       a.updated_at
	FROM appointments a
	JOIN customers c ON c.id = a.customer_id
	JOIN pets p      ON p.id = a.pet_id
	JOIN services s  ON s.id = a.service_id
	LEFT JOIN LATERAL (
		SELECT array_agg(ao.name ORDER BY ao.name) AS names,
		       SUM(ao.duration_min)::int           AS duration_min
		FROM appointment_addons aa
		JOIN addons ao ON ao.id = aa.addon_id
		WHERE aa.appointment_id = a.id
	) ad ON true
`

// AppointmentRepository reads the booking tables for the sync engine and
// writes the mutations that trigger pushes
type AppointmentRepository struct {
	DB database.IDatabase
}

func NewAppointmentRepository(db database.IDatabase) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

// AppointmentRepositoryInterface defines the repository contract
type AppointmentRepositoryInterface interface {
	GetForSync(ctx context.Context, id uuid.UUID) (*entity.AppointmentForSync, error)
	ListForSyncByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.AppointmentForSync, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Reschedule(ctx context.Context, id uuid.UUID, start string, timezone string) error
}

func (r *AppointmentRepository) GetForSync(ctx context.Context, id uuid.UUID) (*entity.AppointmentForSync, error) {
	query := forSyncQuery + ` WHERE a.id = $1`

	var appt entity.AppointmentForSync
	err := r.DB.GetContext(ctx, &appt, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AppointmentRepository:GetForSync", "error", err, "appointment_id", id.String())
		return nil, err
	}

	return &appt, nil
}

func (r *AppointmentRepository) ListForSyncByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.AppointmentForSync, error) {
	query := forSyncQuery + ` WHERE a.id = ANY($1)`

	var appts []entity.AppointmentForSync
	err := r.DB.SelectContext(ctx, &appts, query, pq.Array(ids))
	if err != nil {
		logger.Error("AppointmentRepository:ListForSyncByIDs", "error", err)
		return nil, err
	}

	return appts, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, id, status)
	if err != nil {
		logger.Error("AppointmentRepository:UpdateStatus", "error", err, "appointment_id", id.String())
		return err
	}
	return nil
}

func (r *AppointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, start string, timezone string) error {
	query := `UPDATE appointments SET scheduled_start = $2, timezone = $3, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, id, start, timezone)
	if err != nil {
		logger.Error("AppointmentRepository:Reschedule", "error", err, "appointment_id", id.String())
		return err
	}
	return nil
}
