package router

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/middleware"
	"groombook-api/modules/auth/controller"
)

type AuthRouter struct {
	controller *controller.AuthController
}

func NewAuthRouter(controller *controller.AuthController) *AuthRouter {
	return &AuthRouter{controller: controller}
}

func (r *AuthRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	e.POST("/auth/login", r.controller.Login)

	group := e.Group("/auth", mw.AuthMiddleware())
	group.POST("/logout", r.controller.Logout)
	group.GET("/me", r.controller.Me)
}
