package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/middleware"
	"github.com/medium-stack/mstack/cmd/mserve/service"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// UploaderHandler serves the upload session endpoints
type UploaderHandler struct {
	uploads *service.UploaderService
}

// NewUploaderHandler creates a new uploader handler
func NewUploaderHandler(uploads *service.UploaderService) *UploaderHandler {
	return &UploaderHandler{uploads: uploads}
}

// Create declares a new upload session
// POST /api/v0/core/file-uploader
func (h *UploaderHandler) Create(c echo.Context) error {
	var creator models.FileUploaderCreator
	if err := c.Bind(&creator); err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "invalid request body"))
	}

	session, err := h.uploads.Create(c.Request().Context(), middleware.UserFromContext(c), creator)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// List returns a page of the caller's sessions
// GET /api/v0/core/file-uploader?offset=&size=
func (h *UploaderHandler) List(c echo.Context) error {
	offset, size := pageParams(c)

	sessions, err := h.uploads.List(c.Request().Context(), middleware.UserFromContext(c), offset, size)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// Read returns one session
// GET /api/v0/core/file-uploader/:id
func (h *UploaderHandler) Read(c echo.Context) error {
	session, err := h.uploads.Read(c.Request().Context(), middleware.UserFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// UploadChunk appends a multipart chunk to the session
// POST /api/v0/core/file-uploader/:id  (multipart field "chunk")
func (h *UploaderHandler) UploadChunk(c echo.Context) error {
	file, err := c.FormFile("chunk")
	if err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "multipart field 'chunk' is required"))
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "cannot read chunk"))
	}
	defer src.Close()

	session, err := h.uploads.AppendChunk(c.Request().Context(),
		middleware.UserFromContext(c), c.Param("id"), io.Reader(src))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// Delete removes a session and its staging file.
// DELETE /api/v0/core/file-uploader/:id
//
// Responds 201 for compatibility with existing clients.
func (h *UploaderHandler) Delete(c echo.Context) error {
	err := h.uploads.Delete(c.Request().Context(), middleware.UserFromContext(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "deleted"})
}
