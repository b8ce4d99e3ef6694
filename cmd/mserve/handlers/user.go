package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/cmd/mserve/middleware"
	"github.com/medium-stack/mstack/cmd/mserve/service"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/models"
)

// UserHandler serves registration, login, and the current-user endpoints
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// Register creates a new account
// POST /api/v0/core/users/register
func (h *UserHandler) Register(c echo.Context) error {
	var creator models.UserCreator
	if err := c.Bind(&creator); err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "invalid request body"))
	}

	user, err := h.auth.Register(c.Request().Context(), creator)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login verifies credentials and returns a bearer token
// POST /api/v0/core/users/login
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrBadInput, "invalid request body"))
	}

	token, user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout revokes the caller's token
// POST /api/v0/core/users/logout
func (h *UserHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), middleware.BearerToken(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the authenticated user
// GET /api/v0/core/users/me
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.UserFromContext(c))
}

// Delete removes the caller's account and credentials.
// DELETE /api/v0/core/users
//
// Responds 201 for compatibility with existing clients.
func (h *UserHandler) Delete(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if err := h.auth.DeleteAccount(c.Request().Context(), user); err != nil {
		return respondError(c, err)
	}
	// Revoke the token too. The account is already gone, so a failure here
	// only leaves a token that resolves to a missing user.
	_ = h.auth.Logout(c.Request().Context(), middleware.BearerToken(c))
	return c.JSON(http.StatusCreated, map[string]string{"status": "deleted"})
}
