package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/container"
	"github.com/medium-stack/mstack/cmd/mserve/handlers"
	"github.com/medium-stack/mstack/cmd/mserve/middleware"
)

// RegisterMediaRoutes registers the media file and release routes
func RegisterMediaRoutes(e *echo.Echo, c *container.Container) {
	mh := handlers.NewMediaHandler(c.MediaService)
	rh := handlers.NewReleaseHandler(c.ReleaseService)
	prefix := c.Components.Config.Service.APIPrefix

	files := e.Group(prefix + "/core/file")
	files.Use(middleware.Auth(c.AuthService))
	{
		files.GET("/:type", mh.List)      // GET    /api/v0/core/file/image
		files.GET("/:type/one", mh.Read)  // GET    /api/v0/core/file/image/one?id=&cid=
		files.DELETE("/:type", mh.Delete) // DELETE /api/v0/core/file/image?id=&cid= -> 201
	}

	releases := e.Group(prefix + "/core/release")
	releases.Use(middleware.Auth(c.AuthService))
	{
		releases.POST("/:type", rh.Create)
		releases.GET("/:type", rh.List)
		releases.GET("/:type/one", rh.Read)
		releases.DELETE("/:type", rh.Delete)
		releases.DELETE("/:type/files", rh.DeleteFiles)
	}
}
