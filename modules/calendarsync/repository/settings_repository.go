package repository

import (
	"context"
	"database/sql"

	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/modules/calendarsync/entity"
)

// SettingsRepository handles the single-row calendar_sync_settings table
type SettingsRepository struct {
	DB database.IDatabase
}

func NewSettingsRepository(db database.IDatabase) *SettingsRepository {
	return &SettingsRepository{DB: db}
}

// SettingsRepositoryInterface defines the repository contract
type SettingsRepositoryInterface interface {
	Get(ctx context.Context) (*entity.SyncSettings, error)
	Update(ctx context.Context, settings *entity.SyncSettings) (*entity.SyncSettings, error)
}

// Get returns the stored settings, falling back to defaults when the row has
// never been written.
func (r *SettingsRepository) Get(ctx context.Context) (*entity.SyncSettings, error) {
	query := `
		SELECT id, eligible_statuses, sync_past_appointments, notify_on_failure, created_at, updated_at
		FROM calendar_sync_settings
		ORDER BY created_at ASC
		LIMIT 1
	`

	var settings entity.SyncSettings
	err := r.DB.GetContext(ctx, &settings, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return entity.DefaultSyncSettings(), nil
		}
		logger.Error("SettingsRepository:Get", "error", err)
		return nil, err
	}

	return &settings, nil
}

func (r *SettingsRepository) Update(ctx context.Context, settings *entity.SyncSettings) (*entity.SyncSettings, error) {
	query := `
		INSERT INTO calendar_sync_settings (id, eligible_statuses, sync_past_appointments, notify_on_failure)
		VALUES (COALESCE((SELECT id FROM calendar_sync_settings LIMIT 1), gen_random_uuid()), $1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET eligible_statuses = $1, sync_past_appointments = $2, notify_on_failure = $3, updated_at = NOW()
		RETURNING id, eligible_statuses, sync_past_appointments, notify_on_failure, created_at, updated_at
	`

	var saved entity.SyncSettings
	err := r.DB.GetContext(ctx, &saved, query,
		settings.EligibleStatuses, settings.SyncPastAppointments, settings.NotifyOnFailure)
	if err != nil {
		logger.Error("SettingsRepository:Update", "error", err)
		return nil, err
	}

	return &saved, nil
}
