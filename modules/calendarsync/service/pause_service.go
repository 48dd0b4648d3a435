package service

import (
	"context"

	"github.com/google/uuid"

	"groombook-api/core/cache"
	"groombook-api/core/constants"
	"groombook-api/core/errors"
	"groombook-api/core/logger"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/repository"
)

// PauseService owns the auto_sync_paused flag. Pushes against a paused
// connection short-circuit as skipped without touching the provider or the
// quota counter.
type PauseService struct {
	connRepo repository.ConnectionRepositoryInterface
	cache    cache.Cache
}

func NewPauseService(connRepo repository.ConnectionRepositoryInterface, c cache.Cache) *PauseService {
	return &PauseService{connRepo: connRepo, cache: c}
}

func rateLimitKey(connID uuid.UUID) string {
	return constants.RedisKeyRateLimitHits + connID.String()
}

func (s *PauseService) pause(ctx context.Context, connID uuid.UUID, reason string) error {
	if err := s.connRepo.SetPaused(ctx, connID, true, &reason); err != nil {
		return err
	}
	logger.Warn("PauseService:Paused", "connection_id", connID.String(), "reason", reason)
	return nil
}

// PauseManual pauses on behalf of the connection owner.
func (s *PauseService) PauseManual(ctx context.Context, connID uuid.UUID) error {
	return s.pause(ctx, connID, entity.PauseReasonManual)
}

// PauseForQuota fires when usage crosses the near-limit threshold. The pause
// lapses on its own once the quota window resets.
func (s *PauseService) PauseForQuota(ctx context.Context, connID uuid.UUID) error {
	return s.pause(ctx, connID, entity.PauseReasonQuotaNearLimit)
}

// PauseForReconnect marks the connection unusable until the owner goes
// through the OAuth flow again.
func (s *PauseService) PauseForReconnect(ctx context.Context, conn *entity.CalendarConnection) error {
	return s.pause(ctx, conn.ID, entity.PauseReasonReconnectRequired)
}

// RecordRateLimit counts consecutive provider rate-limit failures and
// auto-pauses once the streak reaches the threshold. Returns true when this
// call triggered the pause.
func (s *PauseService) RecordRateLimit(ctx context.Context, connID uuid.UUID) (bool, error) {
	streak, err := s.cache.IncrWithWindow(ctx, rateLimitKey(connID), constants.SyncQuotaWindow)
	if err != nil {
		logger.Error("PauseService:RecordRateLimit", "error", err, "connection_id", connID.String())
		return false, err
	}

	if streak < int64(constants.SyncRateLimitPauseAfter) {
		return false, nil
	}

	if err := s.pause(ctx, connID, entity.PauseReasonRateLimited); err != nil {
		return false, err
	}
	return true, nil
}

// ClearRateLimitStreak resets the consecutive-429 counter after a
// successful provider call.
func (s *PauseService) ClearRateLimitStreak(ctx context.Context, connID uuid.UUID) {
	if err := s.cache.Del(ctx, rateLimitKey(connID)); err != nil {
		logger.Error("PauseService:ClearRateLimitStreak", "error", err, "connection_id", connID.String())
	}
}

// Resume lifts a pause on the owner's request. Reconnect-required pauses
// cannot be resumed; the credentials are gone and only a new OAuth flow
// fixes that.
func (s *PauseService) Resume(ctx context.Context, conn *entity.CalendarConnection, adminID uuid.UUID, role string) *errors.AppError {
	if conn.OwnerAdminID != adminID && role != "admin" {
		return errors.NewAppError(errors.ErrForbidden, "only the connection owner may resume sync", nil)
	}
	if conn.PauseReason != nil && *conn.PauseReason == entity.PauseReasonReconnectRequired {
		return errors.NewAppError(errors.ErrReconnectRequired, "calendar authorization was revoked, reconnect required", nil)
	}

	if err := s.connRepo.SetPaused(ctx, conn.ID, false, nil); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to resume sync", err)
	}
	s.ClearRateLimitStreak(ctx, conn.ID)
	logger.Info("PauseService:Resumed", "connection_id", conn.ID.String(), "admin_id", adminID.String())
	return nil
}

// MaybeAutoResume lifts a quota pause whose window has already reset. Called
// from the push path so a lapsed pause never blocks new work.
func (s *PauseService) MaybeAutoResume(ctx context.Context, conn *entity.CalendarConnection, quotaNearLimit bool) (bool, error) {
	if !conn.AutoSyncPaused || conn.PauseReason == nil || *conn.PauseReason != entity.PauseReasonQuotaNearLimit {
		return false, nil
	}
	if quotaNearLimit {
		return false, nil
	}

	if err := s.connRepo.SetPaused(ctx, conn.ID, false, nil); err != nil {
		return false, err
	}
	logger.Info("PauseService:AutoResumed", "connection_id", conn.ID.String())
	return true, nil
}
