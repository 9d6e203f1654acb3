package httpserver

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/worldnovel/internal/platform/errors"
	"golang.org/x/time/rate"
)

// Idle visitors are forgotten after this long.
const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter applies one token bucket per visitor to the /api group.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store:               store,
		IdentifierExtractor: rateLimitKey,
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return apperrors.RateLimitedError("rate limit exceeded").WithField("retry_after_seconds", retryAfter(ratePerSecond))
		},
	})
}

// rateLimitKey buckets by identity when the caller declares one and by client IP
// for anonymous reads. The prefixes keep an identity from colliding with an address.
func rateLimitKey(c echo.Context) (string, error) {
	if id := strings.TrimSpace(c.Request().Header.Get(identityHeader)); id != "" {
		return "id:" + id, nil
	}
	return "ip:" + c.RealIP(), nil
}

func retryAfter(ratePerSecond float64) int {
	if ratePerSecond >= 1 {
		return 1
	}
	return int(1/ratePerSecond + 0.5)
}
