package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/container"
	"github.com/medium-stack/mstack/cmd/mserve/handlers"
)

// RegisterHealthRoutes registers the health check route
func RegisterHealthRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewHealthHandler(c.Components)
	e.GET("/health", h.Health)
}
