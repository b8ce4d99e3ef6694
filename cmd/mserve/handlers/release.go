package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/middleware"
	"github.com/medium-stack/mstack/cmd/mserve/service"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// ReleaseHandler serves the release endpoints
type ReleaseHandler struct {
	releases *service.ReleaseService
}

// NewReleaseHandler creates a new release handler
func NewReleaseHandler(releases *service.ReleaseService) *ReleaseHandler {
	return &ReleaseHandler{releases: releases}
}

// Create publishes a release
// POST /api/v0/core/release/:type
func (h *ReleaseHandler) Create(c echo.Context) error {
	var creator models.ReleaseCreator
	if err := c.Bind(&creator); err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "invalid request body"))
	}

	release, err := h.releases.Create(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c), creator)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, release)
}

// List returns a page of the caller's releases of one type
// GET /api/v0/core/release/:type?offset=&size=
func (h *ReleaseHandler) List(c echo.Context) error {
	offset, size := pageParams(c)

	releases, err := h.releases.List(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c), offset, size)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, releases)
}

// Read returns one release by id and/or cid
// GET /api/v0/core/release/:type/one?id=&cid=
func (h *ReleaseHandler) Read(c echo.Context) error {
	release, err := h.releases.Read(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, release)
}

// Delete removes the release record only.
// DELETE /api/v0/core/release/:type?id=&cid=
func (h *ReleaseHandler) Delete(c echo.Context) error {
	err := h.releases.Delete(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "deleted"})
}

// DeleteFiles removes the release and every media file it references.
// DELETE /api/v0/core/release/:type/files?id=&cid=
func (h *ReleaseHandler) DeleteFiles(c echo.Context) error {
	err := h.releases.DeleteFiles(c.Request().Context(),
		middleware.UserFromContext(c), mediaType(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "deleted"})
}
