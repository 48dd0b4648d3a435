package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/config"
	"groombook-api/core/constants"
	"groombook-api/core/logger"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/repository"
)

// RetryService schedules failed pushes into the durable retry queue.
type RetryService struct {
	retryRepo repository.RetryQueueRepositoryInterface

	// jitter disabled makes backoff deterministic in tests.
	withJitter bool
}

func NewRetryService(retryRepo repository.RetryQueueRepositoryInterface) *RetryService {
	return &RetryService{retryRepo: retryRepo, withJitter: true}
}

func (s *RetryService) retryLimits() (base, maxDelay time.Duration, maxRetries int) {
	base, maxDelay, maxRetries = constants.SyncRetryBaseDelay, constants.SyncRetryMaxDelay, constants.SyncMaxRetries
	if cfg, ok := config.GetSafe(); ok {
		if cfg.Sync.RetryBaseDelay > 0 {
			base = cfg.Sync.RetryBaseDelay
		}
		if cfg.Sync.RetryMaxDelay > 0 {
			maxDelay = cfg.Sync.RetryMaxDelay
		}
		if cfg.Sync.MaxRetries > 0 {
			maxRetries = cfg.Sync.MaxRetries
		}
	}
	return base, maxDelay, maxRetries
}

// ComputeBackoff returns the delay before attempt retryCount (1-based):
// base doubled per failure, capped. Jitter only ever adds (up to 20%), so
// consecutive delays stay monotonically increasing until the cap.
func (s *RetryService) ComputeBackoff(retryCount int) time.Duration {
	base, maxDelay, _ := s.retryLimits()

	delay := base
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}

	if s.withJitter && delay < maxDelay {
		if spread := int64(delay) / 5; spread > 0 {
			delay += time.Duration(rand.Int63n(spread))
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// Schedule records a retryable failure. The first failure creates the row at
// retry_count=1; each further failure advances the counter until the cap,
// where the entry freezes as exhausted and stays visible for manual action.
func (s *RetryService) Schedule(ctx context.Context, appointmentID uuid.UUID, operation string, errType, errMsg string) (*entity.RetryQueueEntry, error) {
	_, _, maxRetries := s.retryLimits()
	now := time.Now().UTC()

	existing, err := s.retryRepo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	count := 1
	var lastRetry *time.Time
	if existing != nil {
		count = existing.RetryCount + 1
		lastRetry = &now
	}

	entry := &entity.RetryQueueEntry{
		AppointmentID: appointmentID,
		Operation:     operation,
		RetryCount:    count,
		LastRetryAt:   lastRetry,
		ErrorType:     errType,
		ErrorMessage:  errMsg,
	}

	if count > maxRetries {
		entry.RetryCount = maxRetries
		entry.Exhausted = true
		entry.NextRetryAt = now
		logger.Warn("RetryService:Exhausted",
			"appointment_id", appointmentID.String(), "retry_count", maxRetries, "error_type", errType)
	} else {
		entry.NextRetryAt = now.Add(s.ComputeBackoff(count))
	}

	saved, err := s.retryRepo.Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}

	if !saved.Exhausted {
		logger.Info("RetryService:Scheduled",
			"appointment_id", appointmentID.String(), "retry_count", saved.RetryCount,
			"next_retry_at", saved.NextRetryAt.Format(time.RFC3339), "error_type", errType)
	}
	return saved, nil
}

// Clear removes the appointment's retry entry after a successful push.
func (s *RetryService) Clear(ctx context.Context, appointmentID uuid.UUID) error {
	return s.retryRepo.Delete(ctx, appointmentID)
}
