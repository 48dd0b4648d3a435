package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/database"
	"groombook-api/core/dto"
	"groombook-api/core/logger"
	"groombook-api/core/params"
	"groombook-api/modules/calendarsync/entity"
)

const syncLogColumns = `
	id, connection_id, appointment_id, operation, status,
	error_code, error_message, details, duration_ms, created_at
`

// SyncLogRepository handles calendar_sync_logs database operations. The log
// is append-only; there are no update or delete methods on purpose.
type SyncLogRepository struct {
	DB database.IDatabase
}

func NewSyncLogRepository(db database.IDatabase) *SyncLogRepository {
	return &SyncLogRepository{DB: db}
}

// SyncLogRepositoryInterface defines the repository contract
type SyncLogRepositoryInterface interface {
	Create(ctx context.Context, entry *entity.SyncLogEntry) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]entity.SyncLogEntry, error)
	ListRecent(ctx context.Context, qp *params.QueryParams) (*dto.Pagination[entity.SyncLogEntry], error)
	CountByStatusSince(ctx context.Context, connectionID uuid.UUID, status string, since time.Time) (int, error)
}

func (r *SyncLogRepository) Create(ctx context.Context, entry *entity.SyncLogEntry) error {
	query := `
		INSERT INTO calendar_sync_logs
			(connection_id, appointment_id, operation, status, error_code, error_message, details, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	err := r.DB.ExecContext(ctx, query,
		entry.ConnectionID, entry.AppointmentID, entry.Operation, entry.Status,
		entry.ErrorCode, entry.ErrorMessage, entry.Details, entry.DurationMs)
	if err != nil {
		logger.Error("SyncLogRepository:Create", "error", err, "operation", entry.Operation)
		return err
	}
	return nil
}

func (r *SyncLogRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]entity.SyncLogEntry, error) {
	query := `
		SELECT ` + syncLogColumns + `
		FROM calendar_sync_logs
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`

	var entries []entity.SyncLogEntry
	err := r.DB.SelectContext(ctx, &entries, query, appointmentID)
	if err != nil {
		logger.Error("SyncLogRepository:ListByAppointment", "error", err, "appointment_id", appointmentID.String())
		return nil, err
	}

	return entries, nil
}

func (r *SyncLogRepository) ListRecent(ctx context.Context, qp *params.QueryParams) (*dto.Pagination[entity.SyncLogEntry], error) {
	countQuery := `SELECT COUNT(*) FROM calendar_sync_logs`

	var total int
	if err := r.DB.GetContext(ctx, &total, countQuery); err != nil {
		logger.Error("SyncLogRepository:ListRecent:Count", "error", err)
		return nil, err
	}

	query := `
		SELECT ` + syncLogColumns + `
		FROM calendar_sync_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var entries []entity.SyncLogEntry
	err := r.DB.SelectContext(ctx, &entries, query, qp.PageSize, qp.Offset())
	if err != nil {
		logger.Error("SyncLogRepository:ListRecent", "error", err)
		return nil, err
	}

	return dto.NewPagination(entries, total, qp.PageNumber, qp.PageSize), nil
}

// CountByStatusSince feeds the rolling success and failure counters on the
// status endpoint.
func (r *SyncLogRepository) CountByStatusSince(ctx context.Context, connectionID uuid.UUID, status string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM calendar_sync_logs
		WHERE connection_id = $1 AND status = $2 AND created_at >= $3
	`

	var count int
	err := r.DB.GetContext(ctx, &count, query, connectionID, status, since)
	if err != nil {
		logger.Error("SyncLogRepository:CountByStatusSince", "error", err, "status", status)
		return 0, err
	}

	return count, nil
}
