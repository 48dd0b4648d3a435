package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/database"
	"groombook-api/core/dto"
	"groombook-api/core/logger"
	"groombook-api/core/params"
	"groombook-api/modules/calendarsync/entity"
)

const retryQueueColumns = `
	id, appointment_id, operation, retry_count, next_retry_at, last_retry_at,
	error_type, error_message, exhausted, claimed_until, created_at, updated_at
`

// RetryQueueRepository handles calendar_sync_retry_queue database operations
type RetryQueueRepository struct {
	DB database.IDatabase
}

func NewRetryQueueRepository(db database.IDatabase) *RetryQueueRepository {
	return &RetryQueueRepository{DB: db}
}

// RetryQueueRepositoryInterface defines the repository contract
type RetryQueueRepositoryInterface interface {
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*entity.RetryQueueEntry, error)
	Upsert(ctx context.Context, entry *entity.RetryQueueEntry) (*entity.RetryQueueEntry, error)
	Delete(ctx context.Context, appointmentID uuid.UUID) error
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]entity.RetryQueueEntry, error)
	List(ctx context.Context, qp *params.QueryParams, includeExhausted bool) (*dto.Pagination[entity.RetryQueueEntry], error)
	CountPending(ctx context.Context) (int, error)
}

func (r *RetryQueueRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*entity.RetryQueueEntry, error) {
	query := `
		SELECT ` + retryQueueColumns + `
		FROM calendar_sync_retry_queue
		WHERE appointment_id = $1
	`

	var entry entity.RetryQueueEntry
	err := r.DB.GetContext(ctx, &entry, query, appointmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("RetryQueueRepository:GetByAppointment", "error", err, "appointment_id", appointmentID.String())
		return nil, err
	}

	return &entry, nil
}

// Upsert keeps one row per appointment. A fresh failure after a prior success
// replaces the row; a repeat failure advances the counter and reschedules.
func (r *RetryQueueRepository) Upsert(ctx context.Context, entry *entity.RetryQueueEntry) (*entity.RetryQueueEntry, error) {
	query := `
		INSERT INTO calendar_sync_retry_queue
			(appointment_id, operation, retry_count, next_retry_at, last_retry_at,
			 error_type, error_message, exhausted, claimed_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
		ON CONFLICT (appointment_id)
		DO UPDATE SET operation = $2, retry_count = $3, next_retry_at = $4, last_retry_at = $5,
		              error_type = $6, error_message = $7, exhausted = $8, claimed_until = NULL,
		              updated_at = NOW()
		RETURNING ` + retryQueueColumns

	var saved entity.RetryQueueEntry
	err := r.DB.GetContext(ctx, &saved, query,
		entry.AppointmentID, entry.Operation, entry.RetryCount, entry.NextRetryAt,
		entry.LastRetryAt, entry.ErrorType, entry.ErrorMessage, entry.Exhausted)
	if err != nil {
		logger.Error("RetryQueueRepository:Upsert", "error", err, "appointment_id", entry.AppointmentID.String())
		return nil, err
	}

	return &saved, nil
}

func (r *RetryQueueRepository) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	query := `DELETE FROM calendar_sync_retry_queue WHERE appointment_id = $1`

	err := r.DB.ExecContext(ctx, query, appointmentID)
	if err != nil {
		logger.Error("RetryQueueRepository:Delete", "error", err, "appointment_id", appointmentID.String())
		return err
	}
	return nil
}

// ClaimDue takes a lease on due, non-exhausted entries so overlapping scanner
// runs never pick up the same row. SKIP LOCKED keeps concurrent scanners from
// blocking each other; the lease covers crashes between claim and completion.
func (r *RetryQueueRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]entity.RetryQueueEntry, error) {
	query := `
		UPDATE calendar_sync_retry_queue
		SET claimed_until = $2, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM calendar_sync_retry_queue
			WHERE exhausted = false
			  AND next_retry_at <= $1
			  AND (claimed_until IS NULL OR claimed_until < $1)
			ORDER BY next_retry_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + retryQueueColumns

	var claimed []entity.RetryQueueEntry
	err := r.DB.SelectContext(ctx, &claimed, query, now, now.Add(lease), limit)
	if err != nil {
		logger.Error("RetryQueueRepository:ClaimDue", "error", err)
		return nil, err
	}

	return claimed, nil
}

func (r *RetryQueueRepository) List(ctx context.Context, qp *params.QueryParams, includeExhausted bool) (*dto.Pagination[entity.RetryQueueEntry], error) {
	countQuery := `SELECT COUNT(*) FROM calendar_sync_retry_queue WHERE exhausted = false OR $1`

	var total int
	if err := r.DB.GetContext(ctx, &total, countQuery, includeExhausted); err != nil {
		logger.Error("RetryQueueRepository:List:Count", "error", err)
		return nil, err
	}

	query := `
		SELECT ` + retryQueueColumns + `
		FROM calendar_sync_retry_queue
		WHERE exhausted = false OR $1
		ORDER BY next_retry_at ASC
		LIMIT $2 OFFSET $3
	`

	var entries []entity.RetryQueueEntry
	err := r.DB.SelectContext(ctx, &entries, query, includeExhausted, qp.PageSize, qp.Offset())
	if err != nil {
		logger.Error("RetryQueueRepository:List", "error", err)
		return nil, err
	}

	return dto.NewPagination(entries, total, qp.PageNumber, qp.PageSize), nil
}

func (r *RetryQueueRepository) CountPending(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM calendar_sync_retry_queue WHERE exhausted = false`

	var count int
	err := r.DB.GetContext(ctx, &count, query)
	if err != nil {
		logger.Error("RetryQueueRepository:CountPending", "error", err)
		return 0, err
	}

	return count, nil
}
