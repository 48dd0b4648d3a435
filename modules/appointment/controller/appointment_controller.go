package controller

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"groombook-api/core/controller"
	"groombook-api/core/errors"
	"groombook-api/modules/appointment/dto"
	"groombook-api/modules/appointment/service"
)

type AppointmentController struct {
	service *service.AppointmentService
	controller.BaseController
}

func NewAppointmentController(service *service.AppointmentService) *AppointmentController {
	return &AppointmentController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// Confirm confirms an appointment
// @Summary Confirm appointment
// @Tags Appointment
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/appointments/{id}/confirm [post]
func (c *AppointmentController) Confirm(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid appointment id")
	}

	if appErr := c.service.Confirm(ctx.Request().Context(), id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Appointment confirmed")
}

// Cancel cancels an appointment
// @Summary Cancel appointment
// @Tags Appointment
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.AppError
// @Router /private/appointments/{id}/cancel [post]
func (c *AppointmentController) Cancel(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid appointment id")
	}

	if appErr := c.service.Cancel(ctx.Request().Context(), id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Appointment cancelled")
}

// UpdateStatus sets the appointment lifecycle status
// @Summary Update appointment status
// @Tags Appointment
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.AppError
// @Router /private/appointments/{id}/status [put]
func (c *AppointmentController) UpdateStatus(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid appointment id")
	}

	req := new(dto.UpdateStatusRequest)
	if err := ctx.Bind(req); err != nil || req.Status == "" {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	if appErr := c.service.UpdateStatus(ctx.Request().Context(), id, req.Status); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Status updated")
}

// Reschedule moves the appointment start time
// @Summary Reschedule appointment
// @Tags Appointment
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Appointment id"
// @Param request body dto.RescheduleRequest true "New start and timezone"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.AppError
// @Router /private/appointments/{id}/reschedule [put]
func (c *AppointmentController) Reschedule(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid appointment id")
	}

	req := new(dto.RescheduleRequest)
	if err := ctx.Bind(req); err != nil || req.ScheduledStart.IsZero() {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	if appErr := c.service.Reschedule(ctx.Request().Context(), id, req.ScheduledStart, req.Timezone); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Appointment rescheduled")
}
