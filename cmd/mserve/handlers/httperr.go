// Package handlers translates HTTP requests into service calls and service
// errors into the API's single error envelope: {"detail": "<message>"}.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/common/errs"
)

// respondError is the one place error kinds become status codes. Server-side
// failures are logged and answered with a fixed detail so internals never
// leak into a response body.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrAuthFailed):
		status = http.StatusUnauthorized
	case errs.IsUserError(err):
		status = http.StatusBadRequest
	}

	detail := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		detail = "internal error"
	}
	return c.JSON(status, map[string]string{"detail": detail})
}

// pageParams reads offset/size query parameters, zero when absent or bad.
func pageParams(c echo.Context) (offset, size int64) {
	offset, _ = strconv.ParseInt(c.QueryParam("offset"), 10, 64)
	size, _ = strconv.ParseInt(c.QueryParam("size"), 10, 64)
	return offset, size
}
