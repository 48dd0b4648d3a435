package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"groombook-api/core/constants"
	coreentity "groombook-api/core/entity"
	"groombook-api/core/errors"
	"groombook-api/core/logger"
	"groombook-api/core/middleware"
	"groombook-api/core/secrets"
	"groombook-api/modules/calendarsync/dto"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/provider"
	"groombook-api/modules/calendarsync/repository"
)

const oauthStateLength = 32

// ConnectionService owns the OAuth connect/disconnect lifecycle.
type ConnectionService struct {
	connRepo    repository.ConnectionRepositoryInterface
	stateRepo   repository.StateRepositoryInterface
	mappingRepo repository.MappingRepositoryInterface
	logRepo     repository.SyncLogRepositoryInterface
	retryRepo   repository.RetryQueueRepositoryInterface
	google      provider.Client
	googleCfg   provider.GoogleConfig
	encryptor   secrets.Encryptor
	quota       *QuotaService
	admins      AdminSource
}

func NewConnectionService(
	connRepo repository.ConnectionRepositoryInterface,
	stateRepo repository.StateRepositoryInterface,
	mappingRepo repository.MappingRepositoryInterface,
	logRepo repository.SyncLogRepositoryInterface,
	retryRepo repository.RetryQueueRepositoryInterface,
	google provider.Client,
	googleCfg provider.GoogleConfig,
	encryptor secrets.Encryptor,
	quota *QuotaService,
	admins AdminSource,
) *ConnectionService {
	return &ConnectionService{
		connRepo:    connRepo,
		stateRepo:   stateRepo,
		mappingRepo: mappingRepo,
		logRepo:     logRepo,
		retryRepo:   retryRepo,
		google:      google,
		googleCfg:   googleCfg,
		encryptor:   encryptor,
		quota:       quota,
		admins:      admins,
	}
}

// StartConnect validates preconditions and hands back the consent URL with a
// DB-backed opaque state carrying the initiating admin.
func (s *ConnectionService) StartConnect(ctx context.Context, adminID uuid.UUID) (*dto.ConnectStartResponse, *errors.AppError) {
	if !s.googleCfg.Valid() {
		return nil, errors.NewAppError(errors.ErrProviderNotConfigured, "calendar provider credentials are not configured", nil)
	}

	existing, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to check existing connection", err)
	}
	if existing != nil {
		return nil, errors.NewAppError(errors.ErrAlreadyExists, "a calendar connection already exists, disconnect it first", nil)
	}

	state, err := gonanoid.New(oauthStateLength)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate state token", err)
	}

	if err := s.stateRepo.Save(ctx, state, adminID, time.Now().Add(constants.OAuthStateTTL)); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to persist state token", err)
	}

	// Opportunistic housekeeping; failures are harmless.
	if err := s.stateRepo.CleanupExpired(ctx); err != nil {
		logger.Warn("ConnectionService:StartConnect:Cleanup", "error", err)
	}

	logger.Info("ConnectionService:StartConnect", "admin_id", adminID.String())
	return &dto.ConnectStartResponse{AuthURL: s.google.AuthCodeURL(state)}, nil
}

// HandleCallback finishes the OAuth round-trip: consume the state, exchange
// the code, resolve calendar metadata and persist the connection.
func (s *ConnectionService) HandleCallback(ctx context.Context, code, state string) (*entity.CalendarConnection, *errors.AppError) {
	if code == "" || state == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "missing code or state", nil)
	}

	consumed, err := s.stateRepo.Consume(ctx, state)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to verify state token", err)
	}
	if consumed == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "state token is unknown or expired", nil)
	}

	role, err := s.admins.GetAdminRole(ctx, consumed.AdminID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to resolve admin account", err)
	}
	if role != middleware.RoleAdmin {
		return nil, errors.NewAppError(errors.ErrForbidden, "only admins may connect a calendar", nil)
	}

	// The state consumed above may have outlived a connection created in a
	// parallel tab; re-check before exchanging.
	existing, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to check existing connection", err)
	}
	if existing != nil {
		return nil, errors.NewAppError(errors.ErrAlreadyExists, "a calendar connection already exists", nil)
	}

	token, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		logger.Error("ConnectionService:Callback:Exchange", "error", err)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "authorization code exchange failed", err)
	}

	email, calendarID := s.resolveMetadata(ctx, token.AccessToken, consumed.AdminID)

	accessEnc, encErr := s.encryptor.Encrypt(token.AccessToken)
	if encErr != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to protect credentials", encErr)
	}
	refreshEnc, encErr := s.encryptor.Encrypt(token.RefreshToken)
	if encErr != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to protect credentials", encErr)
	}

	conn, err := s.connRepo.Create(ctx, &entity.CalendarConnection{
		OwnerAdminID:       consumed.AdminID,
		AccessTokenEnc:     accessEnc,
		RefreshTokenEnc:    refreshEnc,
		TokenExpiresAt:     token.ExpiresAt,
		GoogleCalendarID:   calendarID,
		GoogleAccountEmail: email,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store connection", err)
	}

	s.logConnectionEvent(ctx, conn.ID, entity.LogOpConnect, coreentity.JSONB{
		"google_account_email": email,
		"google_calendar_id":   calendarID,
	})

	logger.Info("ConnectionService:Connected",
		"connection_id", conn.ID.String(), "admin_id", consumed.AdminID.String(), "calendar_id", calendarID)
	return conn, nil
}

// resolveMetadata fetches the account email and primary writable calendar.
// Both lookups are best-effort: a failure falls back to the admin's own
// email and the provider's "primary" alias rather than failing the connect.
func (s *ConnectionService) resolveMetadata(ctx context.Context, accessToken string, adminID uuid.UUID) (email, calendarID string) {
	calendarID = "primary"

	if info, err := s.google.UserInfo(ctx, accessToken); err != nil {
		logger.Warn("ConnectionService:Callback:UserInfo", "error", err)
	} else {
		email = info.Email
	}
	if email == "" {
		if adminEmail, err := s.admins.GetAdminEmail(ctx, adminID); err == nil {
			email = adminEmail
		}
	}

	if calendars, err := s.google.ListCalendars(ctx, accessToken); err != nil {
		logger.Warn("ConnectionService:Callback:ListCalendars", "error", err)
	} else {
		for _, cal := range calendars {
			if cal.Primary {
				calendarID = cal.ID
				break
			}
		}
	}
	return email, calendarID
}

// Disconnect revokes and removes the active connection. Remote revocation is
// best-effort; local state always wins.
func (s *ConnectionService) Disconnect(ctx context.Context, adminID uuid.UUID, role string) *errors.AppError {
	conn, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load connection", err)
	}
	if conn == nil {
		return errors.NewAppError(errors.ErrNotFound, "no calendar connection to disconnect", nil)
	}
	if conn.OwnerAdminID != adminID && role != middleware.RoleAdmin {
		return errors.NewAppError(errors.ErrForbidden, "only the connection owner may disconnect", nil)
	}

	if accessToken, decErr := s.encryptor.Decrypt(conn.AccessTokenEnc); decErr == nil {
		if revokeErr := s.google.RevokeToken(ctx, accessToken); revokeErr != nil {
			logger.Warn("ConnectionService:Disconnect:Revoke", "error", revokeErr, "connection_id", conn.ID.String())
		}
	}

	if err := s.connRepo.Deactivate(ctx, conn.ID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to remove connection", err)
	}
	if err := s.mappingRepo.DeleteByConnection(ctx, conn.ID); err != nil {
		logger.Error("ConnectionService:Disconnect:Mappings", "error", err, "connection_id", conn.ID.String())
	}
	if err := s.quota.Reset(ctx, conn.ID); err != nil {
		logger.Warn("ConnectionService:Disconnect:QuotaReset", "error", err, "connection_id", conn.ID.String())
	}

	s.logConnectionEvent(ctx, conn.ID, entity.LogOpDisconnect, nil)

	logger.Info("ConnectionService:Disconnected", "connection_id", conn.ID.String(), "admin_id", adminID.String())
	return nil
}

// ActiveConnection loads the active connection or a NotFound error.
func (s *ConnectionService) ActiveConnection(ctx context.Context) (*entity.CalendarConnection, *errors.AppError) {
	conn, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load connection", err)
	}
	if conn == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "no calendar connection", nil)
	}
	return conn, nil
}

// Status assembles the admin dashboard view of the connection and recent
// sync health.
func (s *ConnectionService) Status(ctx context.Context) (*dto.ConnectionStatusResponse, *errors.AppError) {
	conn, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load connection", err)
	}
	if conn == nil {
		return &dto.ConnectionStatusResponse{Connected: false}, nil
	}

	resp := &dto.ConnectionStatusResponse{
		Connected:          true,
		ConnectionID:       &conn.ID,
		GoogleAccountEmail: conn.GoogleAccountEmail,
		GoogleCalendarID:   conn.GoogleCalendarID,
		AutoSyncPaused:     conn.AutoSyncPaused,
		PauseReason:        conn.PauseReason,
		LastSyncAt:         conn.LastSyncAt,
	}

	if count, err := s.mappingRepo.CountByConnection(ctx, conn.ID); err == nil {
		resp.MappedAppointments = count
	}
	if count, err := s.retryRepo.CountPending(ctx); err == nil {
		resp.PendingRetries = count
	}

	since := time.Now().Add(-24 * time.Hour)
	if count, err := s.logRepo.CountByStatusSince(ctx, conn.ID, entity.LogStatusSuccess, since); err == nil {
		resp.SuccessLast24h = count
	}
	if count, err := s.logRepo.CountByStatusSince(ctx, conn.ID, entity.LogStatusFailed, since); err == nil {
		resp.FailedLast24h = count
	}

	return resp, nil
}

func (s *ConnectionService) logConnectionEvent(ctx context.Context, connID uuid.UUID, operation string, details coreentity.JSONB) {
	entry := &entity.SyncLogEntry{
		ConnectionID: connID,
		Operation:    operation,
		Status:       entity.LogStatusSuccess,
		Details:      details,
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		logger.Error("ConnectionService:Log", "error", err, "operation", operation)
	}
}
