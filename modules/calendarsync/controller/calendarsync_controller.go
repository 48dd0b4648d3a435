package controller

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"groombook-api/core/config"
	"groombook-api/core/controller"
	"groombook-api/core/errors"
	"groombook-api/core/middleware"
	"groombook-api/core/params"
	"groombook-api/modules/calendarsync/dto"
	"groombook-api/modules/calendarsync/service"
)

type CalendarSyncController struct {
	connections *service.ConnectionService
	sync        *service.SyncService
	quota       *service.QuotaService
	pause       *service.PauseService
	controller.BaseController
}

func NewCalendarSyncController(
	connections *service.ConnectionService,
	sync *service.SyncService,
	quota *service.QuotaService,
	pause *service.PauseService,
) *CalendarSyncController {
	return &CalendarSyncController{
		connections:    connections,
		sync:           sync,
		quota:          quota,
		pause:          pause,
		BaseController: controller.NewBaseController(),
	}
}

// StartConnect begins the OAuth flow
// @Summary Start calendar connection
// @Description Returns the Google consent URL to redirect the admin to
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ConnectStartResponse
// @Failure 409 {object} errors.AppError
// @Failure 503 {object} errors.AppError
// @Router /private/calendar/connect [get]
func (c *CalendarSyncController) StartConnect(ctx echo.Context) error {
	adminID, err := middleware.AdminIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	resp, appErr := c.connections.StartConnect(ctx.Request().Context(), adminID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, resp, "Connect URL generated")
}

// Callback completes the OAuth flow
// @Summary OAuth callback
// @Description Exchanges the authorization code and stores the connection, then redirects to the frontend
// @Tags CalendarSync
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Opaque state token"
// @Success 302
// @Router /public/calendar/callback [get]
func (c *CalendarSyncController) Callback(ctx echo.Context) error {
	code := ctx.QueryParam("code")
	state := ctx.QueryParam("state")

	frontendURL := "http://localhost:3000"
	if cfg, ok := config.GetSafe(); ok && cfg.Server.FrontendURL != "" {
		frontendURL = cfg.Server.FrontendURL
	}

	_, appErr := c.connections.HandleCallback(ctx.Request().Context(), code, state)
	if appErr != nil {
		return ctx.Redirect(http.StatusFound,
			frontendURL+"/settings/calendar?connected=false&reason="+url.QueryEscape(string(appErr.Code)))
	}

	return ctx.Redirect(http.StatusFound, frontendURL+"/settings/calendar?connected=true")
}

// Disconnect removes the calendar connection
// @Summary Disconnect calendar
// @Description Revokes provider access best-effort and removes the connection with its mappings
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/connection [delete]
func (c *CalendarSyncController) Disconnect(ctx echo.Context) error {
	adminID, err := middleware.AdminIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	if appErr := c.connections.Disconnect(ctx.Request().Context(), adminID, middleware.RoleFromContext(ctx)); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Calendar disconnected")
}

// Status returns connection and sync health
// @Summary Sync status
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ConnectionStatusResponse
// @Router /private/calendar/status [get]
func (c *CalendarSyncController) Status(ctx echo.Context) error {
	resp, appErr := c.connections.Status(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Status retrieved")
}

// Quota returns the rolling provider call budget
// @Summary Quota status
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.QuotaStatus
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/quota [get]
func (c *CalendarSyncController) Quota(ctx echo.Context) error {
	conn, appErr := c.connections.ActiveConnection(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	status, err := c.quota.Status(ctx.Request().Context(), conn.ID)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to read quota")
	}
	return c.SuccessResponse(ctx, status, "Quota retrieved")
}

// SyncNow pushes one appointment immediately
// @Summary Manual sync
// @Description Runs the push engine for one appointment and returns the outcome
// @Tags CalendarSync
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SyncRequest true "Appointment to push"
// @Success 200 {object} service.SyncOutcome
// @Failure 400 {object} errors.AppError
// @Router /private/calendar/sync [post]
func (c *CalendarSyncController) SyncNow(ctx echo.Context) error {
	req := new(dto.SyncRequest)
	if err := ctx.Bind(req); err != nil || req.AppointmentID == uuid.Nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	outcome, err := c.sync.SyncAppointment(ctx.Request().Context(), req.AppointmentID, req.Force)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Sync failed")
	}
	return c.SuccessResponse(ctx, outcome, "Sync executed")
}

// Resync deletes and recreates the remote event
// @Summary Forced resync
// @Description Destructive repair: removes the mapped event and creates a fresh one from current data
// @Tags CalendarSync
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ResyncRequest true "Appointment to resync"
// @Success 200 {object} service.SyncOutcome
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/resync [post]
func (c *CalendarSyncController) Resync(ctx echo.Context) error {
	req := new(dto.ResyncRequest)
	if err := ctx.Bind(req); err != nil || req.AppointmentID == uuid.Nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	outcome, appErr := c.sync.Resync(ctx.Request().Context(), req.AppointmentID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, outcome, "Resync executed")
}

// BatchStatus resolves sync state for many appointments
// @Summary Batch sync status
// @Tags CalendarSync
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BatchStatusRequest true "Appointment ids"
// @Success 200 {array} dto.AppointmentSyncStatus
// @Router /private/calendar/sync-status [post]
func (c *CalendarSyncController) BatchStatus(ctx echo.Context) error {
	req := new(dto.BatchStatusRequest)
	if err := ctx.Bind(req); err != nil || len(req.AppointmentIDs) == 0 {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	statuses, appErr := c.sync.BatchStatus(ctx.Request().Context(), req.AppointmentIDs)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, statuses, "Statuses retrieved")
}

// History lists the sync trail for one appointment
// @Summary Appointment sync history
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment id"
// @Success 200 {array} entity.SyncLogEntry
// @Router /private/calendar/appointments/{id}/history [get]
func (c *CalendarSyncController) History(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid appointment id")
	}

	entries, appErr := c.sync.History(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, entries, "History retrieved")
}

// Logs returns the paginated activity feed
// @Summary Sync activity feed
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /private/calendar/logs [get]
func (c *CalendarSyncController) Logs(ctx echo.Context) error {
	page, appErr := c.sync.RecentLogs(ctx.Request().Context(), params.FromContext(ctx))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, page, "Logs retrieved")
}

// Errors returns the retry queue including exhausted entries
// @Summary Pending sync errors
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /private/calendar/errors [get]
func (c *CalendarSyncController) Errors(ctx echo.Context) error {
	page, appErr := c.sync.PendingErrors(ctx.Request().Context(), params.FromContext(ctx))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, page, "Errors retrieved")
}

// Pause stops automatic pushes
// @Summary Pause sync
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/pause [post]
func (c *CalendarSyncController) Pause(ctx echo.Context) error {
	adminID, err := middleware.AdminIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	conn, appErr := c.connections.ActiveConnection(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	if conn.OwnerAdminID != adminID && middleware.RoleFromContext(ctx) != middleware.RoleAdmin {
		return c.Forbidden(errors.ErrForbidden, "Only the connection owner may pause sync")
	}

	if err := c.pause.PauseManual(ctx.Request().Context(), conn.ID); err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to pause sync")
	}
	return c.SuccessResponse(ctx, nil, "Sync paused")
}

// Resume lifts a pause
// @Summary Resume sync
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.AppError
// @Failure 404 {object} errors.AppError
// @Router /private/calendar/resume [post]
func (c *CalendarSyncController) Resume(ctx echo.Context) error {
	adminID, err := middleware.AdminIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	conn, appErr := c.connections.ActiveConnection(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	if appErr := c.pause.Resume(ctx.Request().Context(), conn, adminID, middleware.RoleFromContext(ctx)); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Sync resumed")
}

// GetSettings returns eligibility configuration
// @Summary Get sync settings
// @Tags CalendarSync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} entity.SyncSettings
// @Router /private/calendar/settings [get]
func (c *CalendarSyncController) GetSettings(ctx echo.Context) error {
	settings, appErr := c.sync.GetSettings(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, settings, "Settings retrieved")
}

// UpdateSettings replaces eligibility configuration
// @Summary Update sync settings
// @Tags CalendarSync
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateSettingsRequest true "New settings"
// @Success 200 {object} entity.SyncSettings
// @Failure 400 {object} errors.AppError
// @Router /private/calendar/settings [put]
func (c *CalendarSyncController) UpdateSettings(ctx echo.Context) error {
	req := new(dto.UpdateSettingsRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	settings, appErr := c.sync.UpdateSettings(ctx.Request().Context(), req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, settings, "Settings updated")
}
