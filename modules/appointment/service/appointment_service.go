package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/errors"
	"groombook-api/core/logger"
	"groombook-api/core/queue"
	"groombook-api/modules/appointment/entity"
	"groombook-api/modules/appointment/repository"
)

// AppointmentService exposes the sync boundary and the mutations that feed
// it. Every successful mutation enqueues a push; enqueue failures are logged
// and swallowed so booking flows never depend on the queue.
type AppointmentService struct {
	repo  repository.AppointmentRepositoryInterface
	queue queue.Client
}

func NewAppointmentService(repo repository.AppointmentRepositoryInterface, q queue.Client) *AppointmentService {
	return &AppointmentService{repo: repo, queue: q}
}

// GetForSync implements the calendar module's AppointmentSource.
func (s *AppointmentService) GetForSync(ctx context.Context, id uuid.UUID) (*entity.AppointmentForSync, error) {
	return s.repo.GetForSync(ctx, id)
}

// ListForSyncByIDs implements the calendar module's AppointmentSource.
func (s *AppointmentService) ListForSyncByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.AppointmentForSync, error) {
	return s.repo.ListForSyncByIDs(ctx, ids)
}

// Confirm moves a scheduled appointment into the confirmed state.
func (s *AppointmentService) Confirm(ctx context.Context, id uuid.UUID) *errors.AppError {
	return s.setStatus(ctx, id, entity.StatusConfirmed)
}

// Cancel cancels the appointment; the push that follows deletes any mapped
// calendar event.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID) *errors.AppError {
	return s.setStatus(ctx, id, entity.StatusCancelled)
}

// UpdateStatus applies any valid lifecycle status.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) *errors.AppError {
	switch status {
	case entity.StatusScheduled, entity.StatusConfirmed, entity.StatusCheckedIn,
		entity.StatusInProgress, entity.StatusCompleted, entity.StatusCancelled:
	default:
		return errors.NewAppError(errors.ErrInvalidInput, "unknown appointment status "+status, nil)
	}
	return s.setStatus(ctx, id, status)
}

func (s *AppointmentService) setStatus(ctx context.Context, id uuid.UUID, status string) *errors.AppError {
	appt, err := s.repo.GetForSync(ctx, id)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load appointment", err)
	}
	if appt == nil {
		return errors.NewAppError(errors.ErrNotFound, "appointment not found", nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to update appointment", err)
	}

	s.enqueuePush(ctx, id)
	return nil
}

// Reschedule moves the appointment start; the push updates the mapped
// event's times.
func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, start time.Time, timezone string) *errors.AppError {
	if timezone == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "timezone is required", nil)
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return errors.NewAppError(errors.ErrInvalidInput, "unknown timezone "+timezone, err)
	}

	appt, err := s.repo.GetForSync(ctx, id)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load appointment", err)
	}
	if appt == nil {
		return errors.NewAppError(errors.ErrNotFound, "appointment not found", nil)
	}

	if err := s.repo.Reschedule(ctx, id, start.UTC().Format(time.RFC3339), timezone); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to reschedule appointment", err)
	}

	s.enqueuePush(ctx, id)
	return nil
}

func (s *AppointmentService) enqueuePush(ctx context.Context, id uuid.UUID) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueSyncPush(ctx, id.String(), false); err != nil {
		logger.Warn("AppointmentService:EnqueuePush", "error", err, "appointment_id", id.String())
	}
}
