package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/worldnovel/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, e.g. a database ping or the ledger breaker state.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResponse struct {
	Status      string            `json:"status"`
	FailedCheck string            `json:"failed_check,omitempty"`
	Error       string            `json:"error,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(ctx, c)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(ctx, c)
}

// runHealthChecks runs every check and reports the first failure by name.
func (s *Server) runHealthChecks(ctx context.Context, c echo.Context) error {
	resp := healthResponse{Status: "ready", Checks: make(map[string]string, len(s.healthChecks))}

	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			resp.Checks[hc.Name] = "failed"
			if resp.FailedCheck == "" {
				resp.Status = "unhealthy"
				resp.FailedCheck = hc.Name
				resp.Error = err.Error()
			}
			continue
		}
		resp.Checks[hc.Name] = "ok"
	}

	status := http.StatusOK
	if resp.FailedCheck != "" {
		status = http.StatusServiceUnavailable
	}
	return writeJSON(c, status, resp)
}

func (s *Server) handleVersion(c echo.Context) error {
	return writeJSON(c, http.StatusOK, version.Get())
}
