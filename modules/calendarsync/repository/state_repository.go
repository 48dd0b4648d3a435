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

// StateRepository handles OAuth state tokens carried through the redirect
// round-trip
type StateRepository struct {
	DB database.IDatabase
}

func NewStateRepository(db database.IDatabase) *StateRepository {
	return &StateRepository{DB: db}
}

// StateRepositoryInterface defines the repository contract
type StateRepositoryInterface interface {
	Save(ctx context.Context, state string, adminID uuid.UUID, expiresAt time.Time) error
	Consume(ctx context.Context, state string) (*entity.OAuthState, error)
	CleanupExpired(ctx context.Context) error
}

func (r *StateRepository) Save(ctx context.Context, state string, adminID uuid.UUID, expiresAt time.Time) error {
	query := `
		INSERT INTO calendar_oauth_states (state, admin_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (state)
		DO UPDATE SET admin_id = $2, expires_at = $3, updated_at = NOW()
	`

	err := r.DB.ExecContext(ctx, query, state, adminID, expiresAt)
	if err != nil {
		logger.Error("StateRepository:Save", "error", err)
		return err
	}
	return nil
}

// Consume deletes and returns the state in one statement so a replayed
// callback cannot reuse it. Returns nil for unknown or expired states.
func (r *StateRepository) Consume(ctx context.Context, state string) (*entity.OAuthState, error) {
	query := `
		DELETE FROM calendar_oauth_states
		WHERE state = $1 AND expires_at > NOW()
		RETURNING id, state, admin_id, expires_at, created_at, updated_at
	`

	var consumed entity.OAuthState
	err := r.DB.GetContext(ctx, &consumed, query, state)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("StateRepository:Consume", "error", err)
		return nil, err
	}

	return &consumed, nil
}

func (r *StateRepository) CleanupExpired(ctx context.Context) error {
	query := `DELETE FROM calendar_oauth_states WHERE expires_at < NOW()`

	err := r.DB.ExecContext(ctx, query)
	if err != nil {
		logger.Error("StateRepository:CleanupExpired", "error", err)
		return err
	}
	return nil
}
