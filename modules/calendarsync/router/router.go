package router

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/middleware"
	"groombook-api/modules/calendarsync/controller"
)

type CalendarSyncRouter struct {
	controller *controller.CalendarSyncController
}

func NewCalendarSyncRouter(controller *controller.CalendarSyncController) *CalendarSyncRouter {
	return &CalendarSyncRouter{controller: controller}
}

func (r *CalendarSyncRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	// OAuth callback has no session; Google calls it directly.
	e.GET("/calendar/callback", r.controller.Callback)

	group := e.Group("/calendar", mw.AuthMiddleware())
	group.GET("/connect", r.controller.StartConnect, mw.RequireAdmin())
	group.DELETE("/connection", r.controller.Disconnect)
	group.GET("/status", r.controller.Status)
	group.GET("/quota", r.controller.Quota)
	group.GET("/logs", r.controller.Logs)
	group.GET("/errors", r.controller.Errors)
	group.POST("/sync", r.controller.SyncNow)
	group.POST("/resync", r.controller.Resync)
	group.POST("/sync-status", r.controller.BatchStatus)
	group.GET("/appointments/:id/history", r.controller.History)
	group.POST("/pause", r.controller.Pause)
	group.POST("/resume", r.controller.Resume)
	group.GET("/settings", r.controller.GetSettings)
	group.PUT("/settings", r.controller.UpdateSettings, mw.RequireAdmin())
}
