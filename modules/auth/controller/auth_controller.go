package controller

import (
	"github.com/labstack/echo/v4"

	"groombook-api/core/controller"
	"groombook-api/core/errors"
	"groombook-api/core/middleware"
	"groombook-api/core/utils"
	"groombook-api/modules/auth/dto"
	"groombook-api/modules/auth/service"
)

type AuthController struct {
	service *service.AuthService
	controller.BaseController
}

func NewAuthController(service *service.AuthService) *AuthController {
	return &AuthController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// Login authenticates an admin
// @Summary Admin login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} errors.AppError
// @Router /public/auth/login [post]
func (c *AuthController) Login(ctx echo.Context) error {
	req := new(dto.LoginRequest)
	if err := ctx.Bind(req); err != nil || req.Email == "" || req.Password == "" {
		return c.BadRequest(errors.ErrInvalidRequestData, "Email and password are required")
	}

	resp, appErr := c.service.Login(ctx.Request().Context(), req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Logged in")
}

// Logout revokes the current token
// @Summary Logout
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /private/auth/logout [post]
func (c *AuthController) Logout(ctx echo.Context) error {
	token, err := utils.GetTokenFromHeader(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrMissingAuthorizationHeader, "Missing authorization header")
	}

	if appErr := c.service.Logout(ctx.Request().Context(), token); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, nil, "Logged out")
}

// Me returns the authenticated admin identity
// @Summary Current admin
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.AdminInfo
// @Router /private/auth/me [get]
func (c *AuthController) Me(ctx echo.Context) error {
	adminID, err := middleware.AdminIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized")
	}

	email, getErr := c.service.GetAdminEmail(ctx.Request().Context(), adminID)
	if getErr != nil {
		return c.ErrorResponse(ctx, getErr)
	}

	return c.SuccessResponse(ctx, dto.AdminInfo{
		ID:    adminID.String(),
		Email: email,
		Role:  middleware.RoleFromContext(ctx),
	}, "Admin retrieved")
}
