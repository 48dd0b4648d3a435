package appointment

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/database"
	"groombook-api/core/middleware"
	"groombook-api/core/queue"
	"groombook-api/modules/appointment/controller"
	"groombook-api/modules/appointment/repository"
	"groombook-api/modules/appointment/router"
	"groombook-api/modules/appointment/service"
)

// Init wires the appointment module. The returned service is the sync
// engine's appointment source.
func Init(e *echo.Group, db database.IDatabase, q queue.Client, mw *middleware.Middleware) *service.AppointmentService {
	repo := repository.NewAppointmentRepository(db)
	svc := service.NewAppointmentService(repo, q)
	ctrl := controller.NewAppointmentController(svc)

	router.NewAppointmentRouter(ctrl).Register(e, mw)

	return svc
}
