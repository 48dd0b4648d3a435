package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/core/params"
	"groombook-api/modules/notification/entity"
)

// NotificationRepository handles notifications database operations
type NotificationRepository struct {
	DB database.IDatabase
}

func NewNotificationRepository(db database.IDatabase) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

// NotificationRepositoryInterface defines the repository contract
type NotificationRepositoryInterface interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByAdminID(ctx context.Context, adminID uuid.UUID, qp *params.QueryParams) (*entity.PaginatedNotificationEntity, error)
	MarkAsRead(ctx context.Context, adminID uuid.UUID, ids []string) error
	MarkAllAsRead(ctx context.Context, adminID uuid.UUID) error
	CountUnread(ctx context.Context, adminID uuid.UUID) (int, error)
}

func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (admin_id, title, message, type, data, is_read)
		VALUES ($1, $2, $3, $4, $5, false)
	`
	err := r.DB.ExecContext(ctx, query,
		notification.AdminID, notification.Title, notification.Message,
		notification.Type, notification.Data)
	if err != nil {
		logger.Error("NotificationRepository:Create", "error", err, "type", notification.Type)
		return err
	}
	return nil
}

func (r *NotificationRepository) GetByAdminID(ctx context.Context, adminID uuid.UUID, qp *params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	baseQuery := `FROM notifications WHERE admin_id = $1`

	var totalItems int
	err := r.DB.GetContext(ctx, &totalItems, "SELECT COUNT(*) "+baseQuery, adminID)
	if err != nil {
		logger.Error("NotificationRepository:GetByAdminID:Count", "error", err)
		return nil, err
	}

	query := `
		SELECT id, admin_id, title, message, type, data, is_read, created_at, updated_at ` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var notifications []entity.Notification
	err = r.DB.SelectContext(ctx, &notifications, query, adminID, qp.PageSize, qp.Offset())
	if err != nil {
		logger.Error("NotificationRepository:GetByAdminID", "error", err)
		return nil, err
	}

	return &entity.PaginatedNotificationEntity{
		Items:      notifications,
		TotalItems: totalItems,
		PageNumber: qp.PageNumber,
		PageSize:   qp.PageSize,
	}, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, adminID uuid.UUID, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE notifications SET is_read = true WHERE admin_id = ? AND id IN (?)`, adminID, ids)
	if err != nil {
		return err
	}

	query = r.DB.SQLx().Rebind(query)
	err = r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error("NotificationRepository:MarkAsRead", "error", err)
		return err
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, adminID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true WHERE admin_id = $1`
	err := r.DB.ExecContext(ctx, query, adminID)
	if err != nil {
		logger.Error("NotificationRepository:MarkAllAsRead", "error", err)
		return err
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, adminID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE admin_id = $1 AND is_read = false`
	err := r.DB.GetContext(ctx, &count, query, adminID)
	if err != nil {
		logger.Error("NotificationRepository:CountUnread", "error", err)
		return 0, err
	}
	return count, nil
}
