package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"groombook-api/core/controller"
	"groombook-api/core/errors"
	"groombook-api/core/utils"
)

const (
	ContextKeyAdminID = "admin_id"
	ContextKeyRole    = "admin_role"

	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// AuthValidator is what the middleware needs from the auth service.
type AuthValidator interface {
	ValidateToken(ctx context.Context, token string) (*utils.TokenData, *errors.AppError)
}

type Middleware struct {
	auth AuthValidator
}

func NewMiddleware(auth AuthValidator) *Middleware {
	return &Middleware{auth: auth}
}

// AuthMiddleware authenticates the bearer token and stores the admin
// identity on the request context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := utils.GetTokenFromHeader(c)
			if err != nil {
				return controller.NewErrorResponse(401, errors.ErrMissingAuthorizationHeader, "missing or malformed authorization header")
			}

			tokenData, appErr := m.auth.ValidateToken(c.Request().Context(), token)
			if appErr != nil {
				return controller.NewErrorResponse(401, appErr.Code, appErr.Message)
			}

			c.Set(ContextKeyAdminID, tokenData.AdminID)
			c.Set(ContextKeyRole, tokenData.Role)
			return next(c)
		}
	}
}

// RequireAdmin gates routes to the admin role. Must run after
// AuthMiddleware.
func (m *Middleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if RoleFromContext(c) != RoleAdmin {
				return controller.NewErrorResponse(403, errors.ErrForbidden, "admin role required")
			}
			return next(c)
		}
	}
}

func AdminIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(ContextKeyAdminID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "admin identity missing from context", nil)
	}
	return id, nil
}

func RoleFromContext(c echo.Context) string {
	role, _ := c.Get(ContextKeyRole).(string)
	return role
}
