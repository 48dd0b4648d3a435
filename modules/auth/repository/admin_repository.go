package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/modules/auth/entity"
)

const adminColumns = `id, email, password_hash, full_name, role, is_active, created_at, updated_at`

// AdminRepository handles admins database operations
type AdminRepository struct {
	DB database.IDatabase
}

func NewAdminRepository(db database.IDatabase) *AdminRepository {
	return &AdminRepository{DB: db}
}

// AdminRepositoryInterface defines the repository contract
type AdminRepositoryInterface interface {
	GetByEmail(ctx context.Context, email string) (*entity.Admin, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Admin, error)
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*entity.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE LOWER(email) = $1 AND is_active = true`

	var admin entity.Admin
	err := r.DB.GetContext(ctx, &admin, query, strings.ToLower(email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AdminRepository:GetByEmail", "error", err)
		return nil, err
	}

	return &admin, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`

	var admin entity.Admin
	err := r.DB.GetContext(ctx, &admin, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AdminRepository:GetByID", "error", err, "admin_id", id.String())
		return nil, err
	}

	return &admin, nil
}
