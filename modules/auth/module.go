package auth

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/cache"
	"groombook-api/core/database"
	"groombook-api/core/middleware"
	"groombook-api/modules/auth/controller"
	"groombook-api/modules/auth/repository"
	"groombook-api/modules/auth/router"
	"groombook-api/modules/auth/service"
)

// NewService builds the auth service alone. The middleware needs it as its
// token validator before any routes can register, so construction and route
// registration are split.
func NewService(db database.IDatabase, c cache.Cache) *service.AuthService {
	return service.NewAuthService(repository.NewAdminRepository(db), c)
}

// RegisterRoutes mounts the auth endpoints.
func RegisterRoutes(e *echo.Group, svc *service.AuthService, mw *middleware.Middleware) {
	ctrl := controller.NewAuthController(svc)
	router.NewAuthRouter(ctrl).Register(e, mw)
}
