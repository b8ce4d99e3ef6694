package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/container"
	"github.com/medium-stack/mstack/cmd/mserve/handlers"
	"github.com/medium-stack/mstack/cmd/mserve/middleware"
)

// RegisterUserRoutes registers account, session, and profile routes
func RegisterUserRoutes(e *echo.Echo, c *container.Container) {
	uh := handlers.NewUserHandler(c.AuthService)
	ph := handlers.NewProfileHandler(c.ProfileService)
	prefix := c.Components.Config.Service.APIPrefix

	users := e.Group(prefix + "/core/users")
	{
		users.POST("/register", uh.Register)
		users.POST("/login", uh.Login)
		users.POST("/logout", uh.Logout, middleware.Auth(c.AuthService))
		users.GET("/me", uh.Me, middleware.Auth(c.AuthService))
		users.DELETE("", uh.Delete, middleware.Auth(c.AuthService))
	}

	profiles := e.Group(prefix + "/core/profiles")
	profiles.Use(middleware.Auth(c.AuthService))
	{
		profiles.POST("", ph.Create)
		profiles.GET("", ph.List)
		profiles.GET("/one", ph.Read)
		profiles.DELETE("", ph.Delete)
	}
}
