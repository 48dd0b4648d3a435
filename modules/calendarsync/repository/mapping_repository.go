package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/modules/calendarsync/entity"
)

const mappingColumns = `
	id, appointment_id, connection_id, google_event_id, sync_direction,
	fingerprint, last_synced_at, created_at, updated_at
`

// MappingRepository handles calendar_event_mappings database operations
type MappingRepository struct {
	DB database.IDatabase
}

func NewMappingRepository(db database.IDatabase) *MappingRepository {
	return &MappingRepository{DB: db}
}

// MappingRepositoryInterface defines the repository contract
type MappingRepositoryInterface interface {
	GetByAppointment(ctx context.Context, connectionID, appointmentID uuid.UUID) (*entity.EventMapping, error)
	GetByAppointments(ctx context.Context, connectionID uuid.UUID, appointmentIDs []uuid.UUID) ([]entity.EventMapping, error)
	Upsert(ctx context.Context, mapping *entity.EventMapping) (*entity.EventMapping, error)
	Delete(ctx context.Context, connectionID, appointmentID uuid.UUID) error
	DeleteByConnection(ctx context.Context, connectionID uuid.UUID) error
	CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error)
}

func (r *MappingRepository) GetByAppointment(ctx context.Context, connectionID, appointmentID uuid.UUID) (*entity.EventMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM calendar_event_mappings
		WHERE connection_id = $1 AND appointment_id = $2
	`

	var mapping entity.EventMapping
	err := r.DB.GetContext(ctx, &mapping, query, connectionID, appointmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MappingRepository:GetByAppointment", "error", err, "appointment_id", appointmentID.String())
		return nil, err
	}

	return &mapping, nil
}

func (r *MappingRepository) GetByAppointments(ctx context.Context, connectionID uuid.UUID, appointmentIDs []uuid.UUID) ([]entity.EventMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM calendar_event_mappings
		WHERE connection_id = $1 AND appointment_id = ANY($2)
	`

	var mappings []entity.EventMapping
	err := r.DB.SelectContext(ctx, &mappings, query, connectionID, pq.Array(appointmentIDs))
	if err != nil {
		logger.Error("MappingRepository:GetByAppointments", "error", err)
		return nil, err
	}

	return mappings, nil
}

// Upsert writes the mapping, replacing the event id and fingerprint when the
// (connection_id, appointment_id) row already exists. Two concurrent pushes
// of one appointment converge on a single row instead of erroring.
func (r *MappingRepository) Upsert(ctx context.Context, mapping *entity.EventMapping) (*entity.EventMapping, error) {
	query := `
		INSERT INTO calendar_event_mappings
			(appointment_id, connection_id, google_event_id, sync_direction, fingerprint, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (connection_id, appointment_id)
		DO UPDATE SET google_event_id = $3, fingerprint = $5, last_synced_at = $6, updated_at = NOW()
		RETURNING ` + mappingColumns

	if mapping.LastSyncedAt.IsZero() {
		mapping.LastSyncedAt = time.Now().UTC()
	}

	var saved entity.EventMapping
	err := r.DB.GetContext(ctx, &saved, query,
		mapping.AppointmentID, mapping.ConnectionID, mapping.GoogleEventID,
		mapping.SyncDirection, mapping.Fingerprint, mapping.LastSyncedAt)
	if err != nil {
		logger.Error("MappingRepository:Upsert", "error", err, "appointment_id", mapping.AppointmentID.String())
		return nil, err
	}

	return &saved, nil
}

func (r *MappingRepository) Delete(ctx context.Context, connectionID, appointmentID uuid.UUID) error {
	query := `DELETE FROM calendar_event_mappings WHERE connection_id = $1 AND appointment_id = $2`

	err := r.DB.ExecContext(ctx, query, connectionID, appointmentID)
	if err != nil {
		logger.Error("MappingRepository:Delete", "error", err, "appointment_id", appointmentID.String())
		return err
	}
	return nil
}

func (r *MappingRepository) DeleteByConnection(ctx context.Context, connectionID uuid.UUID) error {
	query := `DELETE FROM calendar_event_mappings WHERE connection_id = $1`

	err := r.DB.ExecContext(ctx, query, connectionID)
	if err != nil {
		logger.Error("MappingRepository:DeleteByConnection", "error", err, "connection_id", connectionID.String())
		return err
	}
	return nil
}

func (r *MappingRepository) CountByConnection(ctx context.Context, connectionID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM calendar_event_mappings WHERE connection_id = $1`

	var count int
	err := r.DB.GetContext(ctx, &count, query, connectionID)
	if err != nil {
		logger.Error("MappingRepository:CountByConnection", "error", err, "connection_id", connectionID.String())
		return 0, err
	}

	return count, nil
}
