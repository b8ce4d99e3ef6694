package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/middleware"
	"github.com/medium-stack/mstack/cmd/mserve/service"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// ProfileHandler serves the profile endpoints
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Create adds a profile
// POST /api/v0/core/profiles
func (h *ProfileHandler) Create(c echo.Context) error {
	var creator models.ProfileCreator
	if err := c.Bind(&creator); err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "invalid request body"))
	}

	profile, err := h.profiles.Create(c.Request().Context(), middleware.UserFromContext(c), creator)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

// List returns a page of the caller's profiles
// GET /api/v0/core/profiles?offset=&size=
func (h *ProfileHandler) List(c echo.Context) error {
	offset, size := pageParams(c)

	profiles, err := h.profiles.List(c.Request().Context(), middleware.UserFromContext(c), offset, size)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profiles)
}

// Read returns one profile by id and/or cid
// GET /api/v0/core/profiles/one?id=&cid=
func (h *ProfileHandler) Read(c echo.Context) error {
	profile, err := h.profiles.Read(c.Request().Context(), middleware.UserFromContext(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Delete removes a profile.
// DELETE /api/v0/core/profiles?id=&cid=
func (h *ProfileHandler) Delete(c echo.Context) error {
	err := h.profiles.Delete(c.Request().Context(), middleware.UserFromContext(c),
		c.QueryParam("id"), c.QueryParam("cid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "deleted"})
}
