// Package middleware holds the mserve-specific echo middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/service"
	commonmw "github.com/medium-stack/mstack/common/middleware"
	"github.com/medium-stack/mstack/common/models"
)

// contextKeyUser is where the resolved user lands in the request context.
const contextKeyUser = "auth_user"

// Auth resolves the bearer token to a user and stores it in context.
// Requests without a valid token get the 401 error envelope.
func Auth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"detail": "missing bearer token",
				})
			}

			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"detail": "authentication failed",
				})
			}

			c.Set(contextKeyUser, user)
			c.Set(commonmw.ContextKeyUserCid, user.Cid.String())
			return next(c)
		}
	}
}

// UserFromContext returns the authenticated user, or nil outside Auth.
func UserFromContext(c echo.Context) *models.User {
	user, _ := c.Get(contextKeyUser).(*models.User)
	return user
}

// BearerToken returns the raw token from the Authorization header.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, _ := strings.CutPrefix(header, "Bearer ")
	return token
}
