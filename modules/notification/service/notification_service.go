package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	coreentity "groombook-api/core/entity"
	"groombook-api/core/logger"
	"groombook-api/core/params"
	"groombook-api/modules/notification/entity"
	"groombook-api/modules/notification/repository"
)

type NotificationService struct {
	repo repository.NotificationRepositoryInterface
}

func NewNotificationService(repo repository.NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{repo: repo}
}

// NotifySyncFailure implements the sync engine's FailureNotifier. Best
// effort: a failed insert is logged and dropped, never bubbled into the
// push path.
func (s *NotificationService) NotifySyncFailure(ctx context.Context, adminID uuid.UUID, appointmentID uuid.UUID, errType, errMsg string) {
	notif := &entity.Notification{
		AdminID: adminID,
		Title:   "Calendar sync failed",
		Message: fmt.Sprintf("An appointment failed to sync (%s): %s", errType, errMsg),
		Type:    entity.TypeSyncFailed,
		Data: coreentity.JSONB{
			"appointment_id": appointmentID.String(),
			"error_type":     errType,
		},
	}
	if err := s.repo.Create(ctx, notif); err != nil {
		logger.Warn("NotificationService:NotifySyncFailure", "error", err, "appointment_id", appointmentID.String())
	}
}

// NotifyReconnectRequired alerts the owner that credentials were revoked.
func (s *NotificationService) NotifyReconnectRequired(ctx context.Context, adminID uuid.UUID) {
	notif := &entity.Notification{
		AdminID: adminID,
		Title:   "Calendar reconnection required",
		Message: "Google rejected the stored authorization. Reconnect the calendar to resume syncing.",
		Type:    entity.TypeSyncReconnectRequired,
	}
	if err := s.repo.Create(ctx, notif); err != nil {
		logger.Warn("NotificationService:NotifyReconnectRequired", "error", err, "admin_id", adminID.String())
	}
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, adminID uuid.UUID, qp *params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	return s.repo.GetByAdminID(ctx, adminID, qp)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, adminID uuid.UUID, ids []string) error {
	return s.repo.MarkAsRead(ctx, adminID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, adminID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, adminID)
}

func (s *NotificationService) CountUnread(ctx context.Context, adminID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, adminID)
}
