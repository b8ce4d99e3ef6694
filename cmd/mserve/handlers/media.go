package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/middleware"
	"github.com/medium-stack/mstack/cmd/mserve/service"
	"github.com/medium-stack/mstack/common/models"
)

// MediaHandler serves the probed media file records
type MediaHandler struct {
	media *service.MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

func mediaType(c echo.Context) models.FileUploadType {
	return models.FileUploadType(c.Param("type"))
}

// List returns a page of the caller's media records of one type
// GET /api/v0/core/file/:type?offset=&size=
func (h *MediaHandler) List(c echo.Context) error {
	offset, size := pageParams(c)

	records, err := h.media.List(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c), offset, size)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// Read returns one media record by id and/or cid
// GET /api/v0/core/file/:type/one?id=&cid=
func (h *MediaHandler) Read(c echo.Context) error {
	record, err := h.media.Read(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// Delete removes a media record and its payload file.
// DELETE /api/v0/core/file/:type?id=&cid=
//
// Responds 201 for compatibility with existing clients.
func (h *MediaHandler) Delete(c echo.Context) error {
	err := h.media.Delete(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "deleted"})
}
