package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"groombook-api/core/constants"
	"groombook-api/core/errors"
	"groombook-api/core/logger"
	"groombook-api/core/secrets"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/provider"
	"groombook-api/modules/calendarsync/repository"
)

// TokenService hands out valid access tokens, refreshing through the
// provider when the stored one is at or near expiry.
type TokenService struct {
	connRepo  repository.ConnectionRepositoryInterface
	google    provider.Client
	encryptor secrets.Encryptor
	pause     *PauseService

	// One refresh in flight per connection; concurrent pushes share the
	// result instead of racing the provider.
	flight singleflight.Group
}

func NewTokenService(connRepo repository.ConnectionRepositoryInterface, google provider.Client, encryptor secrets.Encryptor, pause *PauseService) *TokenService {
	return &TokenService{
		connRepo:  connRepo,
		google:    google,
		encryptor: encryptor,
		pause:     pause,
	}
}

// GetValidAccessToken returns a plaintext access token for the connection,
// refreshing first when expiry is within the configured skew. On
// invalid_grant the connection is paused with reconnect_required and an
// auth-class error is returned.
func (s *TokenService) GetValidAccessToken(ctx context.Context, conn *entity.CalendarConnection) (string, error) {
	if time.Until(conn.TokenExpiresAt) > constants.TokenExpirySkew {
		return s.encryptor.Decrypt(conn.AccessTokenEnc)
	}

	token, err, _ := s.flight.Do(conn.ID.String(), func() (interface{}, error) {
		return s.refresh(ctx, conn.ID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (s *TokenService) refresh(ctx context.Context, connID uuid.UUID) (string, error) {
	// Re-read inside the flight: a concurrent caller may have refreshed
	// between our expiry check and winning the flight.
	conn, err := s.connRepo.GetByID(ctx, connID)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", errors.NewAppError(errors.ErrNotFound, "calendar connection no longer exists", nil)
	}
	if time.Until(conn.TokenExpiresAt) > constants.TokenExpirySkew {
		return s.encryptor.Decrypt(conn.AccessTokenEnc)
	}

	refreshToken, err := s.encryptor.Decrypt(conn.RefreshTokenEnc)
	if err != nil {
		return "", err
	}

	fresh, err := s.google.RefreshToken(ctx, refreshToken)
	if err != nil {
		perr := provider.AsError(err)
		if perr.Type == provider.ErrorTypeAuth {
			logger.Warn("TokenService:Refresh:InvalidGrant", "connection_id", conn.ID.String(), "reason", perr.Reason)
			if pauseErr := s.pause.PauseForReconnect(ctx, conn); pauseErr != nil {
				logger.Error("TokenService:Refresh:PauseFailed", "error", pauseErr, "connection_id", conn.ID.String())
			}
			return "", errors.NewAppError(errors.ErrReconnectRequired, "calendar authorization was revoked, reconnect required", perr)
		}
		return "", perr
	}

	accessEnc, err := s.encryptor.Encrypt(fresh.AccessToken)
	if err != nil {
		return "", err
	}

	// Providers often omit the refresh token on refresh responses; keep the
	// stored one in that case.
	refreshEnc := conn.RefreshTokenEnc
	if fresh.RefreshToken != "" {
		refreshEnc, err = s.encryptor.Encrypt(fresh.RefreshToken)
		if err != nil {
			return "", err
		}
	}

	if err := s.connRepo.UpdateTokens(ctx, conn.ID, accessEnc, refreshEnc, fresh.ExpiresAt); err != nil {
		return "", err
	}

	logger.Info("TokenService:Refresh", "connection_id", conn.ID.String(), "expires_at", fresh.ExpiresAt.Format(time.RFC3339))
	return fresh.AccessToken, nil
}
