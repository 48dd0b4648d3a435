package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/modules/calendarsync/entity"
)

const connectionColumns = `
	id, owner_admin_id, access_token_enc, refresh_token_enc, token_expires_at,
	google_calendar_id, google_account_email, is_active, auto_sync_paused,
	pause_reason, last_sync_at, created_at, updated_at
`

// ConnectionRepository handles calendar_connections database operations
type ConnectionRepository struct {
	DB database.IDatabase
}

func NewConnectionRepository(db database.IDatabase) *ConnectionRepository {
	return &ConnectionRepository{DB: db}
}

// ConnectionRepositoryInterface defines the repository contract
type ConnectionRepositoryInterface interface {
	Create(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.CalendarConnection, error)
	GetActive(ctx context.Context) (*entity.CalendarConnection, error)
	GetActiveByAdmin(ctx context.Context, adminID uuid.UUID) (*entity.CalendarConnection, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, accessTokenEnc, refreshTokenEnc string, expiresAt time.Time) error
	SetPaused(ctx context.Context, id uuid.UUID, paused bool, reason *string) error
	UpdateLastSync(ctx context.Context, id uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

func (r *ConnectionRepository) Create(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections
			(owner_admin_id, access_token_enc, refresh_token_enc, token_expires_at,
			 google_calendar_id, google_account_email, is_active, auto_sync_paused)
		VALUES ($1, $2, $3, $4, $5, $6, true, false)
		RETURNING ` + connectionColumns

	var created entity.CalendarConnection
	err := r.DB.GetContext(ctx, &created, query,
		conn.OwnerAdminID, conn.AccessTokenEnc, conn.RefreshTokenEnc, conn.TokenExpiresAt,
		conn.GoogleCalendarID, conn.GoogleAccountEmail)
	if err != nil {
		logger.Error("ConnectionRepository:Create", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.CalendarConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections WHERE id = $1`

	var conn entity.CalendarConnection
	err := r.DB.GetContext(ctx, &conn, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:GetByID", "error", err, "connection_id", id.String())
		return nil, err
	}

	return &conn, nil
}

// GetActive returns the single active connection for the business, or nil.
func (r *ConnectionRepository) GetActive(ctx context.Context) (*entity.CalendarConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM calendar_connections
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`

	var conn entity.CalendarConnection
	err := r.DB.GetContext(ctx, &conn, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:GetActive", "error", err)
		return nil, err
	}

	return &conn, nil
}

func (r *ConnectionRepository) GetActiveByAdmin(ctx context.Context, adminID uuid.UUID) (*entity.CalendarConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM calendar_connections
		WHERE owner_admin_id = $1 AND is_active = true
	`

	var conn entity.CalendarConnection
	err := r.DB.GetContext(ctx, &conn, query, adminID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:GetActiveByAdmin", "error", err, "admin_id", adminID.String())
		return nil, err
	}

	return &conn, nil
}

func (r *ConnectionRepository) UpdateTokens(ctx context.Context, id uuid.UUID, accessTokenEnc, refreshTokenEnc string, expiresAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET access_token_enc = $2, refresh_token_enc = $3, token_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, id, accessTokenEnc, refreshTokenEnc, expiresAt)
	if err != nil {
		logger.Error("ConnectionRepository:UpdateTokens", "error", err, "connection_id", id.String())
		return err
	}
	return nil
}

func (r *ConnectionRepository) SetPaused(ctx context.Context, id uuid.UUID, paused bool, reason *string) error {
	query := `
		UPDATE calendar_connections
		SET auto_sync_paused = $2, pause_reason = $3, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, id, paused, reason)
	if err != nil {
		logger.Error("ConnectionRepository:SetPaused", "error", err, "connection_id", id.String())
		return err
	}
	return nil
}

func (r *ConnectionRepository) UpdateLastSync(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE calendar_connections SET last_sync_at = $2, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		logger.Error("ConnectionRepository:UpdateLastSync", "error", err, "connection_id", id.String())
		return err
	}
	return nil
}

// Deactivate ends the connection but keeps the row so sync history stays
// attributable.
func (r *ConnectionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE calendar_connections
		SET is_active = false, auto_sync_paused = false, pause_reason = NULL, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("ConnectionRepository:Deactivate", "error", err, "connection_id", id.String())
		return err
	}
	return nil
}
