package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"taskmate/internal/infrastructure/firebase"
	"taskmate/pkg/errors"
	"taskmate/pkg/response"
)

type AuthMiddleware struct {
	auth *firebase.AuthProvider
}

func NewAuthMiddleware(auth *firebase.AuthProvider) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// Authenticate resolves the bearer token to a user id and stores it on the
// request context as "uid".
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return response.Error(c, errors.Unauthorized("Missing authorization header", nil))
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return response.Error(c, errors.Unauthorized("Invalid authorization header", nil))
			}

			uid, err := m.auth.CurrentUserID(c.Request().Context(), parts[1])
			if err != nil {
				return response.Error(c, err)
			}

			c.Set("uid", uid)
			return next(c)
		}
	}
}
