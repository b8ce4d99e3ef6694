// Package routes registers the API surface on the echo instance.
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/container"
	"github.com/medium-stack/mstack/cmd/mserve/handlers"
	"github.com/medium-stack/mstack/cmd/mserve/middleware"
	commonmw "github.com/medium-stack/mstack/common/middleware"
)

// RegisterUploaderRoutes registers the upload session routes
func RegisterUploaderRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewUploaderHandler(c.UploaderService)
	prefix := c.Components.Config.Service.APIPrefix

	up := e.Group(prefix + "/core/file-uploader")
	up.Use(middleware.Auth(c.AuthService))
	{
		up.POST("", h.Create)   // POST   /api/v0/core/file-uploader
		up.GET("", h.List)      // GET    /api/v0/core/file-uploader?offset=&size=
		up.GET("/:id", h.Read)  // GET    /api/v0/core/file-uploader/:id
		up.POST("/:id", h.UploadChunk,
			commonmw.ChunkRateLimit(c.RateLimiter, c.Components.Config.Upload.MaxChunkRate))
		up.DELETE("/:id", h.Delete) // DELETE /api/v0/core/file-uploader/:id -> 201
	}
}
