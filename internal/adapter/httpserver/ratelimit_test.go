package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/worldnovel/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func limitedHandler(ratePerSecond float64, burst int) echo.HandlerFunc {
	return apperrors.Middleware(nil)(newRateLimiter(ratePerSecond, burst)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
}

func send(t *testing.T, e *echo.Echo, h echo.HandlerFunc, remoteAddr, identity string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/book", nil)
	req.RemoteAddr = remoteAddr
	if identity != "" {
		req.Header.Set(identityHeader, identity)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec.Code
}

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	e := echo.New()
	h := limitedHandler(10, 3)

	for range 3 {
		assert.Equal(t, http.StatusOK, send(t, e, h, testRemoteAddr, ""))
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	e := echo.New()
	h := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, send(t, e, h, testRemoteAddr, ""))

	req := httptest.NewRequest(http.MethodGet, "/api/book", nil)
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	resp := decode[apperrors.ErrorResponse](t, rec)
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	e := echo.New()
	h := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, send(t, e, h, testRemoteAddr, ""))
	assert.Equal(t, http.StatusOK, send(t, e, h, "5.6.7.8:5678", ""))
	assert.Equal(t, http.StatusTooManyRequests, send(t, e, h, testRemoteAddr, ""))
}

func TestRateLimiterKeysOnIdentity(t *testing.T) {
	e := echo.New()
	h := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, send(t, e, h, testRemoteAddr, "alice"))
	// Same IP, different identity: separate bucket.
	assert.Equal(t, http.StatusOK, send(t, e, h, testRemoteAddr, "bob"))
	// Same identity from another IP shares alice's bucket.
	assert.Equal(t, http.StatusTooManyRequests, send(t, e, h, "9.9.9.9:1", "alice"))
}

func TestServer_RateLimitsAPIOnly(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.01
	cfg.RateLimitBurst = 1
	srv := newTestServer(t, &mockNovelService{}, withConfig(cfg))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/period", "", nil).Code)

	rec := do(t, srv, http.MethodGet, "/api/period", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "rate_limited", body["type"])
	assert.Equal(t, map[string]any{"retry_after_seconds": float64(100)}, body["context"])

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health/live", "", nil).Code)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 1, retryAfter(10))
	assert.Equal(t, 1, retryAfter(1))
	assert.Equal(t, 2, retryAfter(0.5))
	assert.Equal(t, 100, retryAfter(0.01))
}
