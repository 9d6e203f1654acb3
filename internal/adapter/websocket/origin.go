package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// NewCheckOrigin returns a CheckOrigin function for the feed's WebSocket handler.
// Empty origins (non-browser clients) and the configured origins are allowed.
// In development, localhost origins are allowed as well.
func NewCheckOrigin(allowedOrigins []string, isDevelopment bool) func(r *http.Request) bool {
	allowed := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if origin := extractOrigin(o); origin != "" {
			allowed = append(allowed, origin)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		if slices.Contains(allowed, strings.ToLower(origin)) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
