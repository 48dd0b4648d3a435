package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"groombook-api/core/cache"
	"groombook-api/core/constants"
	"groombook-api/core/errors"
	"groombook-api/core/logger"
	"groombook-api/core/utils"
	"groombook-api/modules/auth/dto"
	"groombook-api/modules/auth/repository"
)

// AuthService handles admin login and token validation. It also serves as
// the admin lookup for the calendar module.
type AuthService struct {
	repo  repository.AdminRepositoryInterface
	cache cache.Cache
}

func NewAuthService(repo repository.AdminRepositoryInterface, c cache.Cache) *AuthService {
	return &AuthService{repo: repo, cache: c}
}

// Login verifies credentials and issues a JWT. Repeated failures per email
// are throttled through the cache.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, *errors.AppError) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	attemptsKey := constants.RedisKeyLoginAttempts + email
	if attempts, err := s.cache.GetCount(ctx, attemptsKey); err == nil && attempts >= constants.MaxLoginAttempts {
		return nil, errors.NewAppError(errors.ErrForbidden, "too many failed attempts, try again later", nil)
	}

	admin, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to look up account", err)
	}

	if admin == nil || !utils.ComparePassword(admin.PasswordHash, req.Password) {
		if _, incErr := s.cache.IncrWithWindow(ctx, attemptsKey, constants.BlockDuration); incErr != nil {
			logger.Warn("AuthService:Login:Throttle", "error", incErr)
		}
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid email or password", nil)
	}

	if delErr := s.cache.Del(ctx, attemptsKey); delErr != nil {
		logger.Warn("AuthService:Login:ClearThrottle", "error", delErr)
	}

	token, err := utils.GenerateToken(admin.ID, admin.Role)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to issue token", err)
	}

	logger.Info("AuthService:Login", "admin_id", admin.ID.String(), "role", admin.Role)
	return &dto.LoginResponse{
		Token: token,
		Admin: dto.AdminInfo{
			ID:       admin.ID.String(),
			Email:    admin.Email,
			FullName: admin.FullName,
			Role:     admin.Role,
		},
	}, nil
}

// Logout blacklists the token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, token string) *errors.AppError {
	if err := s.cache.AddToTokenBlacklist(ctx, token); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to invalidate token", err)
	}
	return nil
}

// ValidateToken implements the middleware's AuthValidator.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*utils.TokenData, *errors.AppError) {
	blacklisted, err := s.cache.IsTokenBlacklisted(ctx, token)
	if err != nil {
		logger.Warn("AuthService:ValidateToken:Blacklist", "error", err)
	}
	if blacklisted {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "token has been revoked", nil)
	}

	data, err := utils.ValidateAndParseToken(token)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid or expired token", err)
	}
	return data, nil
}

// GetAdminEmail implements the calendar module's AdminSource.
func (s *AuthService) GetAdminEmail(ctx context.Context, adminID uuid.UUID) (string, error) {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", errors.NewAppError(errors.ErrNotFound, "admin not found", nil)
	}
	return admin.Email, nil
}

// GetAdminRole implements the calendar module's AdminSource.
func (s *AuthService) GetAdminRole(ctx context.Context, adminID uuid.UUID) (string, error) {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", errors.NewAppError(errors.ErrNotFound, "admin not found", nil)
	}
	return admin.Role, nil
}
