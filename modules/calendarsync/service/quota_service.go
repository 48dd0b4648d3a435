package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/cache"
	"groombook-api/core/config"
	"groombook-api/core/constants"
	"groombook-api/core/logger"
)

// QuotaStatus is the admin-facing view of the rolling provider budget.
type QuotaStatus struct {
	Current     int64     `json:"current"`
	Limit       int       `json:"limit"`
	Percent     float64   `json:"percent"`
	ResetAt     time.Time `json:"reset_at"`
	IsNearLimit bool      `json:"is_near_limit"`
	Exhausted   bool      `json:"exhausted"`
}

// QuotaService tracks provider calls per connection in a rolling redis
// window. The window anchors at the first call and resets when its TTL
// lapses.
type QuotaService struct {
	cache cache.Cache
}

func NewQuotaService(c cache.Cache) *QuotaService {
	return &QuotaService{cache: c}
}

func quotaKey(connID uuid.UUID) string {
	return constants.RedisKeyQuotaCounter + connID.String()
}

func (s *QuotaService) limits() (limit int, window time.Duration, threshold float64) {
	limit, window, threshold = constants.SyncQuotaLimit, constants.SyncQuotaWindow, constants.SyncNearLimitThreshold
	if cfg, ok := config.GetSafe(); ok {
		if cfg.Sync.QuotaLimit > 0 {
			limit = cfg.Sync.QuotaLimit
		}
		if cfg.Sync.QuotaWindow > 0 {
			window = cfg.Sync.QuotaWindow
		}
		if cfg.Sync.NearLimitThreshold > 0 {
			threshold = cfg.Sync.NearLimitThreshold
		}
	}
	return limit, window, threshold
}

// Consume records one provider call and returns the updated status. Called
// after every actual provider round-trip, success or failure.
func (s *QuotaService) Consume(ctx context.Context, connID uuid.UUID) (*QuotaStatus, error) {
	limit, window, threshold := s.limits()

	count, err := s.cache.IncrWithWindow(ctx, quotaKey(connID), window)
	if err != nil {
		logger.Error("QuotaService:Consume", "error", err, "connection_id", connID.String())
		return nil, err
	}

	status := s.build(ctx, connID, count, limit, window, threshold)
	if status.IsNearLimit {
		logger.Warn("QuotaService:NearLimit",
			"connection_id", connID.String(), "current", status.Current, "limit", status.Limit)
	}
	return status, nil
}

// Status reads the current usage without consuming.
func (s *QuotaService) Status(ctx context.Context, connID uuid.UUID) (*QuotaStatus, error) {
	limit, window, threshold := s.limits()

	count, err := s.cache.GetCount(ctx, quotaKey(connID))
	if err != nil {
		logger.Error("QuotaService:Status", "error", err, "connection_id", connID.String())
		return nil, err
	}

	return s.build(ctx, connID, count, limit, window, threshold), nil
}

// Exhausted reports whether pushes must be blocked before calling the
// provider at all.
func (s *QuotaService) Exhausted(ctx context.Context, connID uuid.UUID) (bool, error) {
	limit, _, _ := s.limits()
	count, err := s.cache.GetCount(ctx, quotaKey(connID))
	if err != nil {
		return false, err
	}
	return count >= int64(limit), nil
}

// Reset clears the window, used when a connection is removed.
func (s *QuotaService) Reset(ctx context.Context, connID uuid.UUID) error {
	return s.cache.Del(ctx, quotaKey(connID))
}

func (s *QuotaService) build(ctx context.Context, connID uuid.UUID, count int64, limit int, window time.Duration, threshold float64) *QuotaStatus {
	resetAt := time.Now().Add(window)
	if ttl, err := s.cache.TTL(ctx, quotaKey(connID)); err == nil && ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	percent := 0.0
	if limit > 0 {
		percent = float64(count) / float64(limit)
	}

	return &QuotaStatus{
		Current:     count,
		Limit:       limit,
		Percent:     percent,
		ResetAt:     resetAt,
		IsNearLimit: percent >= threshold,
		Exhausted:   count >= int64(limit),
	}
}
