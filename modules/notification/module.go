package notification

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/database"
	"groombook-api/core/middleware"
	"groombook-api/modules/notification/controller"
	"groombook-api/modules/notification/repository"
	"groombook-api/modules/notification/router"
	"groombook-api/modules/notification/service"
)

// Init wires the notification module. The returned service is the sync
// engine's failure notifier.
func Init(e *echo.Group, db database.IDatabase, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc
}
