package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/platform/config"
	"github.com/pscheid92/worldnovel/internal/platform/credential"
)

type novelService interface {
	CurrentBook(ctx context.Context) domain.Book
	CurrentPrompt(ctx context.Context) string
	CurrentSentences(ctx context.Context) []domain.Sentence
	TotalVotes(ctx context.Context) int64
	CostToAddSentence(ctx context.Context) (int64, error)
	Period(ctx context.Context) domain.Period
	BalanceOf(ctx context.Context, id domain.Identity) (int64, error)

	AddBook(ctx context.Context, caller domain.Identity, prompt string) (int, error)
	AddSentence(ctx context.Context, caller domain.Identity, text string) (*domain.SentenceReceipt, error)
	VoteOnSentence(ctx context.Context, caller domain.Identity, index int, amount int64) (*domain.VoteReceipt, error)
	SetPeriod(ctx context.Context, caller domain.Identity, p domain.Period) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	novel          novelService
	sessionStore   *sessions.CookieStore
	credentials    *credential.Issuer
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	feedHandler    http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// NewServer builds the router. metricsHandler and feedHandler are optional;
// their routes are only registered when set.
func NewServer(cfg *config.Config, novel novelService, httpMetrics *metrics.HTTPMetrics, metricsHandler, feedHandler http.Handler, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		novel:          novel,
		sessionStore:   setupSessionStore(cfg),
		credentials:    credential.NewIssuer([]byte(cfg.SessionSecret), cfg.SessionMaxAge),
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		feedHandler:    feedHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router to tests and embedding servers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
