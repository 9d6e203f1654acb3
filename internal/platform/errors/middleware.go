package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Middleware converts errors returned by handlers into JSON responses.
// counter, when non-nil, is incremented with the error type as its only label.
// Echo HTTP errors (404 route misses, 405s, rate limiter rejections) are counted
// and passed through to echo's own handler.
func Middleware(counter *prometheus.CounterVec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				count(counter, WrapHTTPError(httpErr))
				return err
			}

			return respond(c, counter, AsStructuredError(err))
		}
	}
}

// HandleError writes err as a JSON response from inside a handler.
func HandleError(c echo.Context, counter *prometheus.CounterVec, err error) error {
	if err == nil {
		return nil
	}
	return respond(c, counter, AsStructuredError(err))
}

func respond(c echo.Context, counter *prometheus.CounterVec, err *Error) error {
	count(counter, err)
	logError(c, err)
	if werr := c.JSON(err.HTTPStatus(), err.ToResponse()); werr != nil {
		return fmt.Errorf("failed to write error response: %w", werr)
	}
	return nil
}

func count(counter *prometheus.CounterVec, err *Error) {
	if counter != nil {
		counter.WithLabelValues(string(err.Type)).Inc()
	}
}

func logError(c echo.Context, err *Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case TypeValidation, TypeNotFound, TypePaymentRequired:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case TypeUnauthorized, TypeForbidden, TypeConflict, TypeRateLimited:
		slog.WarnContext(ctx, "Request refused", attrs...)
	default:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Request failed", attrs...)
	}
}

// WrapHTTPError converts echo's HTTPError to a structured error.
func WrapHTTPError(httpErr *echo.HTTPError) *Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	var errType ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
		errType = TypeValidation
	case http.StatusUnauthorized:
		errType = TypeUnauthorized
	case http.StatusForbidden:
		errType = TypeForbidden
	case http.StatusNotFound:
		errType = TypeNotFound
	case http.StatusConflict:
		errType = TypeConflict
	case http.StatusTooManyRequests:
		errType = TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = TypeExternal
	default:
		errType = TypeInternal
	}

	err := newError(errType, message, nil)
	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}
	return err
}
