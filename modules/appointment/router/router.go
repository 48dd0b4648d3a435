package router

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/middleware"
	"groombook-api/modules/appointment/controller"
)

type AppointmentRouter struct {
	controller *controller.AppointmentController
}

func NewAppointmentRouter(controller *controller.AppointmentController) *AppointmentRouter {
	return &AppointmentRouter{controller: controller}
}

func (r *AppointmentRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/appointments", mw.AuthMiddleware())
	group.POST("/:id/confirm", r.controller.Confirm)
	group.POST("/:id/cancel", r.controller.Cancel)
	group.PUT("/:id/status", r.controller.UpdateStatus)
	group.PUT("/:id/reschedule", r.controller.Reschedule)
}
