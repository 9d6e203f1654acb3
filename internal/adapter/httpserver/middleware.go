package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/centrifugal/centrifuge"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/platform/correlation"
	apperrors "github.com/pscheid92/worldnovel/internal/platform/errors"
)

const (
	identityHeader     = "X-Novel-Identity"
	credentialHeader   = "X-Novel-Credential"
	maxIdentityLength  = 128
	identityKey        = "identity"
	sessionName        = "worldnovel_session"
	sessionKeyIdentity = "identity"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.Accept(c.Request().Header.Get(echo.HeaderXRequestID))
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireIdentity rejects requests without a verified caller and stores the caller
// for handlers and log records.
func (s *Server) requireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.authenticate(c.Request())
		if err != nil {
			return err
		}
		if id == "" {
			return apperrors.UnauthorizedError("missing " + credentialHeader + " header or session")
		}

		c.Set(identityKey, domain.Identity(id))
		ctx := correlation.WithCaller(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// authenticate resolves the caller from a signed credential or the session cookie.
// It returns an empty identity for anonymous requests. An identity header without
// a matching credential is rejected.
func (s *Server) authenticate(r *http.Request) (string, error) {
	claimed := strings.TrimSpace(r.Header.Get(identityHeader))
	if len(claimed) > maxIdentityLength {
		return "", apperrors.ValidationError(identityHeader + " header too long").WithField("max_length", maxIdentityLength)
	}

	if token := strings.TrimSpace(r.Header.Get(credentialHeader)); token != "" {
		id, err := s.credentials.Verify(token)
		if err != nil {
			return "", apperrors.UnauthorizedError("invalid " + credentialHeader + " header")
		}
		if claimed != "" && claimed != id {
			return "", apperrors.UnauthorizedError(credentialHeader + " does not match " + identityHeader)
		}
		return checkLength(id)
	}
	if claimed != "" {
		return "", apperrors.UnauthorizedError(identityHeader + " requires " + credentialHeader)
	}

	// An unreadable cookie is treated as no session.
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return "", nil
	}
	id, _ := session.Values[sessionKeyIdentity].(string)
	return checkLength(id)
}

func checkLength(id string) (string, error) {
	if len(id) > maxIdentityLength {
		return "", apperrors.ValidationError("identity too long").WithField("max_length", maxIdentityLength)
	}
	return id, nil
}

// feedCredentials attaches the optional reader identity to the feed connection.
// Browsers cannot set headers on a WebSocket upgrade, so they rely on the session cookie.
func (s *Server) feedCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticate(r)
		if err != nil {
			status := http.StatusUnauthorized
			var apiErr *apperrors.Error
			if errors.As(err, &apiErr) {
				status = apiErr.HTTPStatus()
			}
			http.Error(w, err.Error(), status)
			return
		}

		ctx := centrifuge.SetCredentials(r.Context(), &centrifuge.Credentials{UserID: identity})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFrom(c echo.Context) domain.Identity {
	id, _ := c.Get(identityKey).(domain.Identity)
	return id
}

func (s *Server) errorCounter() *prometheus.CounterVec {
	if s.httpMetrics == nil {
		return nil
	}
	return s.httpMetrics.Errors
}
