package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"groombook-api/core/constants"
	"groombook-api/core/dto"
	coreentity "groombook-api/core/entity"
	"groombook-api/core/errors"
	"groombook-api/core/logger"
	"groombook-api/core/params"
	apptentity "groombook-api/modules/appointment/entity"
	syncdto "groombook-api/modules/calendarsync/dto"
	"groombook-api/modules/calendarsync/entity"
	"groombook-api/modules/calendarsync/provider"
	"groombook-api/modules/calendarsync/repository"
)

// Outcome statuses for one push attempt.
const (
	OutcomeSynced  = "synced"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Skip reasons surfaced on skipped outcomes.
const (
	SkipNotConnected   = "not_connected"
	SkipPaused         = "paused"
	SkipNotFound       = "appointment_not_found"
	SkipCriteriaNotMet = "criteria_not_met"
	SkipUnchanged      = "unchanged"
)

// SyncOutcome is the structured result of one push attempt. The engine
// always returns an outcome; provider failures are folded in rather than
// escaping as errors.
type SyncOutcome struct {
	Status        string `json:"status"`
	Operation     string `json:"operation,omitempty"`
	SkipReason    string `json:"skip_reason,omitempty"`
	ErrorType     string `json:"error_type,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	GoogleEventID string `json:"google_event_id,omitempty"`
	RetryCount    int    `json:"retry_count,omitempty"`
	Exhausted     bool   `json:"exhausted,omitempty"`
}

func skipped(reason string) *SyncOutcome {
	return &SyncOutcome{Status: OutcomeSkipped, SkipReason: reason}
}

// SyncService is the push engine: it decides the operation for an
// appointment, performs it against the provider, and records the result in
// mappings, logs and the retry queue.
type SyncService struct {
	connRepo     repository.ConnectionRepositoryInterface
	mappingRepo  repository.MappingRepositoryInterface
	logRepo      repository.SyncLogRepositoryInterface
	settingsRepo repository.SettingsRepositoryInterface
	retryRepo    repository.RetryQueueRepositoryInterface
	appointments AppointmentSource
	google       provider.Client
	tokens       *TokenService
	quota        *QuotaService
	pause        *PauseService
	retry        *RetryService
	notifier     FailureNotifier
}

func NewSyncService(
	connRepo repository.ConnectionRepositoryInterface,
	mappingRepo repository.MappingRepositoryInterface,
	logRepo repository.SyncLogRepositoryInterface,
	settingsRepo repository.SettingsRepositoryInterface,
	retryRepo repository.RetryQueueRepositoryInterface,
	appointments AppointmentSource,
	google provider.Client,
	tokens *TokenService,
	quota *QuotaService,
	pause *PauseService,
	retry *RetryService,
	notifier FailureNotifier,
) *SyncService {
	return &SyncService{
		connRepo:     connRepo,
		mappingRepo:  mappingRepo,
		logRepo:      logRepo,
		settingsRepo: settingsRepo,
		retryRepo:    retryRepo,
		appointments: appointments,
		google:       google,
		tokens:       tokens,
		quota:        quota,
		pause:        pause,
		retry:        retry,
		notifier:     notifier,
	}
}

// SyncAppointment pushes one appointment's current state to the connected
// calendar. force bypasses the unchanged-fingerprint skip.
func (s *SyncService) SyncAppointment(ctx context.Context, appointmentID uuid.UUID, force bool) (*SyncOutcome, error) {
	conn, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return skipped(SkipNotConnected), nil
	}

	// Quota pauses lapse with the window; check before the pause gate so a
	// stale pause does not block fresh work.
	quotaStatus, qErr := s.quota.Status(ctx, conn.ID)
	if qErr == nil && conn.AutoSyncPaused {
		if resumed, rErr := s.pause.MaybeAutoResume(ctx, conn, quotaStatus.IsNearLimit); rErr == nil && resumed {
			conn.AutoSyncPaused = false
			conn.PauseReason = nil
		}
	}

	if conn.AutoSyncPaused {
		return skipped(SkipPaused), nil
	}

	appt, err := s.appointments.GetForSync(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return skipped(SkipNotFound), nil
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	mapping, err := s.mappingRepo.GetByAppointment(ctx, conn.ID, appointmentID)
	if err != nil {
		return nil, err
	}

	op, payload := s.selectOperation(appt, mapping, settings, force)
	if op == "" {
		return skipped(SkipCriteriaNotMet), nil
	}
	if op == opSkipUnchanged {
		return skipped(SkipUnchanged), nil
	}

	// Quota gate: an exhausted window blocks the push before any provider
	// traffic, classified like a provider rate limit so it retries later.
	if quotaStatus != nil && quotaStatus.Exhausted {
		return s.recordFailure(ctx, conn, appointmentID, op, &provider.Error{
			Type:    provider.ErrorTypeRateLimit,
			Reason:  "local_quota_exhausted",
			Message: "provider call budget exhausted for the current window",
		}, settings, 0), nil
	}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, conn)
	if err != nil {
		return s.handleTokenFailure(ctx, conn, appointmentID, op, err, settings), nil
	}

	started := time.Now()
	eventID, callErr := s.performOperation(ctx, accessToken, conn, mapping, op, payload)
	duration := time.Since(started).Milliseconds()

	// Every actual provider round-trip spends quota, success or not.
	if consumed, qErr := s.quota.Consume(ctx, conn.ID); qErr == nil && consumed.IsNearLimit && !conn.AutoSyncPaused {
		if pErr := s.pause.PauseForQuota(ctx, conn.ID); pErr != nil {
			logger.Error("SyncService:QuotaPause", "error", pErr, "connection_id", conn.ID.String())
		}
	}

	if callErr != nil {
		return s.recordFailure(ctx, conn, appointmentID, op, provider.AsError(callErr), settings, duration), nil
	}

	return s.recordSuccess(ctx, conn, appointmentID, op, eventID, payload, duration)
}

const opSkipUnchanged = "skip_unchanged"

// selectOperation decides what one push does. Empty op means the appointment
// does not meet sync criteria and nothing remote should change.
func (s *SyncService) selectOperation(appt *apptentity.AppointmentForSync, mapping *entity.EventMapping, settings *entity.SyncSettings, force bool) (string, *provider.EventPayload) {
	// Cancellation deletes the remote event when one exists and never
	// creates one.
	if appt.Status == apptentity.StatusCancelled {
		if mapping != nil {
			return entity.LogOpDelete, nil
		}
		return "", nil
	}

	eligible := false
	for _, status := range settings.EligibleStatuses {
		if appt.Status == status {
			eligible = true
			break
		}
	}
	if eligible && !settings.SyncPastAppointments && appt.IsPast(time.Now()) {
		eligible = false
	}
	if !eligible {
		// A previously synced appointment that left the eligible set keeps
		// its event; only cancellation removes remote state.
		return "", nil
	}

	payload := BuildEventPayload(appt)
	if mapping == nil {
		return entity.LogOpCreate, payload
	}
	if !force && mapping.Fingerprint == Fingerprint(payload) {
		return opSkipUnchanged, nil
	}
	return entity.LogOpUpdate, payload
}

func (s *SyncService) performOperation(ctx context.Context, accessToken string, conn *entity.CalendarConnection, mapping *entity.EventMapping, op string, payload *provider.EventPayload) (string, error) {
	switch op {
	case entity.LogOpCreate:
		return s.google.CreateEvent(ctx, accessToken, conn.GoogleCalendarID, payload)
	case entity.LogOpUpdate:
		if err := s.google.UpdateEvent(ctx, accessToken, conn.GoogleCalendarID, mapping.GoogleEventID, payload); err != nil {
			return "", err
		}
		return mapping.GoogleEventID, nil
	case entity.LogOpDelete:
		err := s.google.DeleteEvent(ctx, accessToken, conn.GoogleCalendarID, mapping.GoogleEventID)
		if err != nil {
			// Already gone remotely is the outcome delete wants.
			if perr := provider.AsError(err); perr.NotFound() {
				return "", nil
			}
			return "", err
		}
		return "", nil
	}
	return "", &provider.Error{Type: provider.ErrorTypeValidation, Message: "unsupported operation " + op}
}

func (s *SyncService) recordSuccess(ctx context.Context, conn *entity.CalendarConnection, appointmentID uuid.UUID, op, eventID string, payload *provider.EventPayload, durationMs int64) (*SyncOutcome, error) {
	now := time.Now().UTC()

	switch op {
	case entity.LogOpCreate, entity.LogOpUpdate:
		_, err := s.mappingRepo.Upsert(ctx, &entity.EventMapping{
			AppointmentID: appointmentID,
			ConnectionID:  conn.ID,
			GoogleEventID: eventID,
			SyncDirection: entity.SyncDirectionPush,
			Fingerprint:   Fingerprint(payload),
			LastSyncedAt:  now,
		})
		if err != nil {
			return nil, err
		}
	case entity.LogOpDelete:
		if err := s.mappingRepo.Delete(ctx, conn.ID, appointmentID); err != nil {
			return nil, err
		}
	}

	if err := s.retry.Clear(ctx, appointmentID); err != nil {
		logger.Warn("SyncService:ClearRetry", "error", err, "appointment_id", appointmentID.String())
	}
	s.pause.ClearRateLimitStreak(ctx, conn.ID)

	if err := s.connRepo.UpdateLastSync(ctx, conn.ID, now); err != nil {
		logger.Warn("SyncService:UpdateLastSync", "error", err, "connection_id", conn.ID.String())
	}

	s.writeLog(ctx, conn.ID, &appointmentID, op, entity.LogStatusSuccess, nil, nil, coreentity.JSONB{
		"google_event_id": eventID,
	}, durationMs)

	logger.Info("SyncService:Synced",
		"appointment_id", appointmentID.String(), "operation", op, "google_event_id", eventID, "duration_ms", durationMs)

	return &SyncOutcome{Status: OutcomeSynced, Operation: op, GoogleEventID: eventID}, nil
}

func (s *SyncService) recordFailure(ctx context.Context, conn *entity.CalendarConnection, appointmentID uuid.UUID, op string, perr *provider.Error, settings *entity.SyncSettings, durationMs int64) *SyncOutcome {
	errType := string(perr.Type)
	errMsg := perr.Message

	s.writeLog(ctx, conn.ID, &appointmentID, op, entity.LogStatusFailed, &errType, &errMsg, coreentity.JSONB{
		"reason":      perr.Reason,
		"status_code": perr.StatusCode,
	}, durationMs)

	if perr.Type == provider.ErrorTypeRateLimit {
		if paused, err := s.pause.RecordRateLimit(ctx, conn.ID); err == nil && paused {
			logger.Warn("SyncService:RateLimitPause", "connection_id", conn.ID.String())
		}
	}

	outcome := &SyncOutcome{
		Status:       OutcomeFailed,
		Operation:    op,
		ErrorType:    errType,
		ErrorMessage: errMsg,
	}

	if perr.Retryable() {
		if entry, err := s.retry.Schedule(ctx, appointmentID, op, errType, errMsg); err == nil {
			outcome.RetryCount = entry.RetryCount
			outcome.Exhausted = entry.Exhausted
		}
	}

	if settings != nil && settings.NotifyOnFailure && s.notifier != nil {
		s.notifier.NotifySyncFailure(ctx, conn.OwnerAdminID, appointmentID, errType, errMsg)
	}

	logger.Warn("SyncService:Failed",
		"appointment_id", appointmentID.String(), "operation", op, "error_type", errType, "error", errMsg)
	return outcome
}

// handleTokenFailure folds refresh failures into the outcome. A reconnect-
// required condition is terminal until the owner re-authorizes; everything
// else goes through the normal classification path.
func (s *SyncService) handleTokenFailure(ctx context.Context, conn *entity.CalendarConnection, appointmentID uuid.UUID, op string, err error, settings *entity.SyncSettings) *SyncOutcome {
	if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrReconnectRequired {
		if s.notifier != nil {
			s.notifier.NotifyReconnectRequired(ctx, conn.OwnerAdminID)
		}
		return s.recordFailure(ctx, conn, appointmentID, op, &provider.Error{
			Type:    provider.ErrorTypeAuth,
			Reason:  "invalid_grant",
			Message: appErr.Message,
		}, settings, 0)
	}
	return s.recordFailure(ctx, conn, appointmentID, op, provider.AsError(err), settings, 0)
}

// Resync repairs drift destructively: the old event is removed (missing is
// fine) and a fresh one is created from current appointment state.
func (s *SyncService) Resync(ctx context.Context, appointmentID uuid.UUID) (*SyncOutcome, *errors.AppError) {
	conn, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load connection", err)
	}
	if conn == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "no calendar connection", nil)
	}

	mapping, err := s.mappingRepo.GetByAppointment(ctx, conn.ID, appointmentID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load event mapping", err)
	}
	if mapping == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "appointment was never synced", nil)
	}

	appt, err := s.appointments.GetForSync(ctx, appointmentID)
	if err != nil || appt == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "appointment not found", err)
	}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, conn)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to obtain access token", err)
	}

	resyncID := uuid.NewString()
	previousEventID := mapping.GoogleEventID

	started := time.Now()
	if delErr := s.google.DeleteEvent(ctx, accessToken, conn.GoogleCalendarID, previousEventID); delErr != nil {
		if perr := provider.AsError(delErr); !perr.NotFound() {
			s.consumeQuota(ctx, conn)
			errType := string(perr.Type)
			s.writeLog(ctx, conn.ID, &appointmentID, entity.LogOpResync, entity.LogStatusFailed, &errType, &perr.Message, coreentity.JSONB{
				"resync_id":         resyncID,
				"previous_event_id": previousEventID,
				"phase":             "delete",
			}, time.Since(started).Milliseconds())
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to remove previous event", perr)
		}
	}
	s.consumeQuota(ctx, conn)

	s.writeLog(ctx, conn.ID, &appointmentID, entity.LogOpResync, entity.LogStatusSuccess, nil, nil, coreentity.JSONB{
		"resync_id":         resyncID,
		"previous_event_id": previousEventID,
		"phase":             "delete",
	}, time.Since(started).Milliseconds())

	if err := s.mappingRepo.Delete(ctx, conn.ID, appointmentID); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to drop stale mapping", err)
	}

	payload := BuildEventPayload(appt)
	createStart := time.Now()
	newEventID, createErr := s.google.CreateEvent(ctx, accessToken, conn.GoogleCalendarID, payload)
	s.consumeQuota(ctx, conn)
	if createErr != nil {
		perr := provider.AsError(createErr)
		errType := string(perr.Type)
		s.writeLog(ctx, conn.ID, &appointmentID, entity.LogOpResync, entity.LogStatusFailed, &errType, &perr.Message, coreentity.JSONB{
			"resync_id":         resyncID,
			"previous_event_id": previousEventID,
			"phase":             "create",
		}, time.Since(createStart).Milliseconds())

		// The old event is gone and the new one never landed; queue a retry
		// so the engine recreates it.
		if perr.Retryable() {
			if _, rErr := s.retry.Schedule(ctx, appointmentID, entity.LogOpCreate, errType, perr.Message); rErr != nil {
				logger.Error("SyncService:Resync:Schedule", "error", rErr, "appointment_id", appointmentID.String())
			}
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to recreate event", perr)
	}

	if _, err := s.mappingRepo.Upsert(ctx, &entity.EventMapping{
		AppointmentID: appointmentID,
		ConnectionID:  conn.ID,
		GoogleEventID: newEventID,
		SyncDirection: entity.SyncDirectionPush,
		Fingerprint:   Fingerprint(payload),
		LastSyncedAt:  time.Now().UTC(),
	}); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store new mapping", err)
	}

	s.writeLog(ctx, conn.ID, &appointmentID, entity.LogOpResync, entity.LogStatusSuccess, nil, nil, coreentity.JSONB{
		"resync_id":         resyncID,
		"previous_event_id": previousEventID,
		"google_event_id":   newEventID,
		"phase":             "create",
	}, time.Since(createStart).Milliseconds())

	logger.Info("SyncService:Resynced",
		"appointment_id", appointmentID.String(), "previous_event_id", previousEventID, "google_event_id", newEventID)

	return &SyncOutcome{Status: OutcomeSynced, Operation: entity.LogOpResync, GoogleEventID: newEventID}, nil
}

func (s *SyncService) consumeQuota(ctx context.Context, conn *entity.CalendarConnection) {
	if consumed, err := s.quota.Consume(ctx, conn.ID); err == nil && consumed.IsNearLimit && !conn.AutoSyncPaused {
		if pErr := s.pause.PauseForQuota(ctx, conn.ID); pErr != nil {
			logger.Error("SyncService:QuotaPause", "error", pErr, "connection_id", conn.ID.String())
		}
		conn.AutoSyncPaused = true
	}
}

// ProcessRetryQueue claims due retry entries and replays them through the
// normal push path. Safe to run from several instances at once; claims are
// leased rows.
func (s *SyncService) ProcessRetryQueue(ctx context.Context) error {
	claimed, err := s.retryRepo.ClaimDue(ctx, time.Now().UTC(), constants.SyncRetryClaimLease, 50)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	logger.Info("SyncService:RetryScan", "claimed", len(claimed))

	for _, entry := range claimed {
		outcome, err := s.SyncAppointment(ctx, entry.AppointmentID, false)
		if err != nil {
			logger.Error("SyncService:RetryScan:Error", "error", err, "appointment_id", entry.AppointmentID.String())
			continue
		}

		// Skips mean the entry no longer applies (disconnected, ineligible,
		// unchanged); drop it rather than retrying forever. Failures already
		// rescheduled themselves inside SyncAppointment.
		if outcome.Status == OutcomeSkipped && outcome.SkipReason != SkipPaused {
			if err := s.retry.Clear(ctx, entry.AppointmentID); err != nil {
				logger.Warn("SyncService:RetryScan:Clear", "error", err, "appointment_id", entry.AppointmentID.String())
			}
		}
	}
	return nil
}

// BatchStatus resolves sync state for a set of appointments in two queries.
func (s *SyncService) BatchStatus(ctx context.Context, appointmentIDs []uuid.UUID) ([]syncdto.AppointmentSyncStatus, *errors.AppError) {
	conn, err := s.connRepo.GetActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load connection", err)
	}

	byAppointment := map[uuid.UUID]entity.EventMapping{}
	if conn != nil {
		mappings, err := s.mappingRepo.GetByAppointments(ctx, conn.ID, appointmentIDs)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load mappings", err)
		}
		for _, m := range mappings {
			byAppointment[m.AppointmentID] = m
		}
	}

	statuses := make([]syncdto.AppointmentSyncStatus, 0, len(appointmentIDs))
	for _, id := range appointmentIDs {
		status := syncdto.AppointmentSyncStatus{AppointmentID: id}

		if m, ok := byAppointment[id]; ok {
			status.Synced = true
			status.GoogleEventID = m.GoogleEventID
			lastSynced := m.LastSyncedAt
			status.LastSyncedAt = &lastSynced
		}

		if entry, err := s.retryRepo.GetByAppointment(ctx, id); err == nil && entry != nil {
			status.RetryPending = !entry.Exhausted
			status.RetryCount = entry.RetryCount
			status.Exhausted = entry.Exhausted
			status.LastErrorType = entry.ErrorType
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}

// History returns the append-only log trail for one appointment.
func (s *SyncService) History(ctx context.Context, appointmentID uuid.UUID) ([]entity.SyncLogEntry, *errors.AppError) {
	entries, err := s.logRepo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load sync history", err)
	}
	return entries, nil
}

// RecentLogs is the paginated activity feed for the dashboard.
func (s *SyncService) RecentLogs(ctx context.Context, qp *params.QueryParams) (*dto.Pagination[entity.SyncLogEntry], *errors.AppError) {
	page, err := s.logRepo.ListRecent(ctx, qp)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load sync feed", err)
	}
	return page, nil
}

// PendingErrors lists retry queue entries, exhausted included, for the
// errors dashboard.
func (s *SyncService) PendingErrors(ctx context.Context, qp *params.QueryParams) (*dto.Pagination[entity.RetryQueueEntry], *errors.AppError) {
	page, err := s.retryRepo.List(ctx, qp, true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load retry queue", err)
	}
	return page, nil
}

// GetSettings returns the stored sync settings or defaults.
func (s *SyncService) GetSettings(ctx context.Context) (*entity.SyncSettings, *errors.AppError) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load settings", err)
	}
	return settings, nil
}

// UpdateSettings replaces the eligibility configuration.
func (s *SyncService) UpdateSettings(ctx context.Context, req *syncdto.UpdateSettingsRequest) (*entity.SyncSettings, *errors.AppError) {
	if len(req.EligibleStatuses) == 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "eligible_statuses must not be empty", nil)
	}
	for _, status := range req.EligibleStatuses {
		switch status {
		case apptentity.StatusScheduled, apptentity.StatusConfirmed, apptentity.StatusCheckedIn,
			apptentity.StatusInProgress, apptentity.StatusCompleted:
		default:
			return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown appointment status "+status, nil)
		}
	}

	saved, err := s.settingsRepo.Update(ctx, &entity.SyncSettings{
		EligibleStatuses:     req.EligibleStatuses,
		SyncPastAppointments: req.SyncPastAppointments,
		NotifyOnFailure:      req.NotifyOnFailure,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store settings", err)
	}
	return saved, nil
}

func (s *SyncService) writeLog(ctx context.Context, connID uuid.UUID, appointmentID *uuid.UUID, op, status string, errCode, errMsg *string, details coreentity.JSONB, durationMs int64) {
	entry := &entity.SyncLogEntry{
		ConnectionID:  connID,
		AppointmentID: appointmentID,
		Operation:     op,
		Status:        status,
		ErrorCode:     errCode,
		ErrorMessage:  errMsg,
		Details:       details,
		DurationMs:    durationMs,
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		logger.Error("SyncService:WriteLog", "error", err, "operation", op)
	}
}
