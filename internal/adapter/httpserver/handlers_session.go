package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/worldnovel/internal/platform/errors"
)

func (s *Server) registerSessionRoutes(api *echo.Group) {
	api.POST("/session", s.handleLogin)
	api.GET("/session", s.handleGetSession, s.requireIdentity)
	api.DELETE("/session", s.handleLogout)
}

type loginRequest struct {
	Credential string `json:"credential"`
}

type sessionResponse struct {
	Identity string `json:"identity"`
}

// handleLogin exchanges a signed credential for a session cookie, for clients
// that cannot set headers (browsers opening the feed).
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	token := strings.TrimSpace(req.Credential)
	if token == "" {
		return apperrors.ValidationError("credential is required")
	}

	identity, err := s.credentials.Verify(token)
	if err != nil {
		return apperrors.UnauthorizedError("invalid credential")
	}
	if _, err := checkLength(identity); err != nil {
		return err
	}

	session, err := s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		slog.DebugContext(c.Request().Context(), "Replacing unreadable session cookie", "error", err)
	}
	session.Values[sessionKeyIdentity] = identity
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(c.Request().Context(), "Session started", "identity", identity)
	return writeJSON(c, http.StatusOK, sessionResponse{Identity: identity})
}

func (s *Server) handleGetSession(c echo.Context) error {
	return writeJSON(c, http.StatusOK, sessionResponse{Identity: callerFrom(c).String()})
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.DebugContext(c.Request().Context(), "Clearing unreadable session cookie", "error", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}
	return c.NoContent(http.StatusNoContent)
}
