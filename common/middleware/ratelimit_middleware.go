package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medium-stack/mstack/common/ratelimit"
)

// ContextKeyUserCid is where the auth middleware stores the caller's cid.
const ContextKeyUserCid = "user_cid"

// GlobalRateLimit caps total request volume across all users. Fails open on
// limiter errors so a redis outage does not take the API down with it.
func GlobalRateLimit(rateLimiter *ratelimit.RateLimiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := rateLimiter.CheckGlobalLimit(c.Request().Context(), limit)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return tooManyRequests(c, result)
			}
			return next(c)
		}
	}
}

// ChunkRateLimit caps per-user chunk appends. Requires the auth middleware
// to have stored the caller's cid in context; unauthenticated requests never
// reach the upload routes.
func ChunkRateLimit(rateLimiter *ratelimit.RateLimiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limit <= 0 {
				return next(c)
			}

			userCid, ok := c.Get(ContextKeyUserCid).(string)
			if !ok || userCid == "" {
				return next(c)
			}

			result, err := rateLimiter.CheckChunkLimit(c.Request().Context(), userCid, limit)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return tooManyRequests(c, result)
			}
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, result *ratelimit.Result) error {
	retryAfter := result.RetryAfterSeconds
	if retryAfter <= 0 {
		retryAfter = 1
	}
	c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	return c.JSON(http.StatusTooManyRequests, map[string]string{
		"detail": "rate limit exceeded",
	})
}
