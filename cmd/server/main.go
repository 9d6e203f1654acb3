package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/worldnovel/internal/adapter/breaker"
	"github.com/pscheid92/worldnovel/internal/adapter/eventpublisher"
	"github.com/pscheid92/worldnovel/internal/adapter/httpserver"
	"github.com/pscheid92/worldnovel/internal/adapter/memory"
	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/adapter/postgres"
	"github.com/pscheid92/worldnovel/internal/adapter/redis"
	"github.com/pscheid92/worldnovel/internal/adapter/sqlite"
	"github.com/pscheid92/worldnovel/internal/adapter/websocket"
	"github.com/pscheid92/worldnovel/internal/app"
	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/novel"
	"github.com/pscheid92/worldnovel/internal/platform/config"
	"github.com/pscheid92/worldnovel/internal/platform/logging"
	"github.com/pscheid92/worldnovel/internal/platform/retry"
	"github.com/pscheid92/worldnovel/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const bootTimeout = 30 * time.Second

// ledgerBackend is what every storage adapter offers: the novel's debit port and the funding port.
type ledgerBackend interface {
	domain.TokenLedger
	domain.TokenFunder
}

// connections holds the opened infrastructure; unused fields stay nil.
type connections struct {
	pool   *pgxpool.Pool
	redis  *goredis.Client
	sqlite *sql.DB
}

func (c *connections) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.sqlite != nil {
		_ = c.sqlite.Close()
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func startupPolicy(dependency string) retry.Policy {
	p := retry.StartupPolicy()
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not ready, retrying", "dependency", dependency, "attempt", attempt, "backoff", backoff, "error", err)
	}
	return p
}

func setupDB(ctx context.Context, cfg *config.Config, dbm *metrics.DBMetrics) *pgxpool.Pool {
	pool, err := retry.Do(ctx, startupPolicy("postgres"), retry.Transient, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(dbm))
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, rm *metrics.RedisMetrics) *goredis.Client {
	client, err := retry.Do(ctx, startupPolicy("redis"), retry.Transient, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(rm))
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupSQLite(cfg *config.Config) *sql.DB {
	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("Failed to open SQLite database", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	return db
}

func openConnections(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *connections {
	conns := &connections{}
	if cfg.NeedsPostgres() {
		conns.pool = setupDB(ctx, cfg, metrics.NewDBMetrics(reg))
	}
	if cfg.NeedsRedis() {
		conns.redis = setupRedis(ctx, cfg, metrics.NewRedisMetrics(reg))
	}
	if cfg.NeedsSQLite() {
		conns.sqlite = setupSQLite(cfg)
	}
	return conns
}

func selectLedger(cfg *config.Config, conns *connections) ledgerBackend {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		return postgres.NewLedger(conns.pool)
	case config.BackendRedis:
		return redis.NewLedger(conns.redis)
	case config.BackendSQLite:
		return sqlite.NewLedger(conns.sqlite)
	default:
		return memory.NewLedger()
	}
}

func selectStateStore(cfg *config.Config, conns *connections) domain.StateStore {
	switch cfg.StateBackend {
	case config.BackendPostgres:
		return postgres.NewStateStore(conns.pool)
	case config.BackendRedis:
		return redis.NewStateStore(conns.redis)
	case config.BackendSQLite:
		return sqlite.NewStateStore(conns.sqlite)
	default:
		return memory.NewStateStore()
	}
}

// selectSettlement debits and saves in one transaction when the ledger and the state
// live in the same store. Otherwise the debit is refunded when the save fails.
func selectSettlement(cfg *config.Config, conns *connections, ledger *breaker.Ledger, backend ledgerBackend, store domain.StateStore, m *metrics.NovelMetrics) domain.Settlement {
	if cfg.LedgerBackend == cfg.StateBackend {
		switch cfg.LedgerBackend {
		case config.BackendPostgres:
			return ledger.Guard(postgres.NewSettlement(conns.pool))
		case config.BackendRedis:
			return ledger.Guard(redis.NewSettlement(conns.redis))
		case config.BackendSQLite:
			return ledger.Guard(sqlite.NewSettlement(conns.sqlite))
		}
	}
	return app.NewLedgerSettlement(ledger, backend, store, m)
}

// setupFeed starts the live event feed. The node and handler are nil when the feed is disabled.
func setupFeed(cfg *config.Config, fm *metrics.FeedMetrics) (*centrifuge.Node, http.Handler) {
	if !cfg.FeedEnabled {
		return nil, nil
	}

	node, err := websocket.NewNode(cfg.LogLevel, fm)
	if err != nil {
		slog.Error("Failed to create feed node", "error", err)
		os.Exit(1)
	}
	if cfg.RedisURL != "" {
		if err := websocket.SetupRedis(node, cfg.RedisURL); err != nil {
			slog.Error("Failed to set up feed Redis broker", "error", err)
			os.Exit(1)
		}
	}
	if err := node.Run(); err != nil {
		slog.Error("Failed to run feed node", "error", err)
		os.Exit(1)
	}

	handler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.FeedAllowedOrigins, cfg.IsDevelopment()),
	})
	return node, handler
}

// setupPublisher composes the feed and the event bus. Returns nil when neither is
// configured, so the service skips publishing without a typed-nil interface.
func setupPublisher(cfg *config.Config, conns *connections, node *centrifuge.Node, fm *metrics.FeedMetrics) domain.EventPublisher {
	var feed, bus domain.EventPublisher
	if node != nil {
		feed = websocket.NewPublisher(node, fm)
	}
	if cfg.EventsBackend == config.BackendRedis {
		bus = redis.NewPublisher(conns.redis)
	}
	if feed == nil && bus == nil {
		return nil
	}
	return eventpublisher.New(feed, bus)
}

func healthChecks(conns *connections, ledger *breaker.Ledger) []httpserver.HealthCheck {
	var checks []httpserver.HealthCheck
	if conns.pool != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "postgres", Check: conns.pool.Ping})
	}
	if conns.redis != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return conns.redis.Ping(ctx).Err()
		}})
	}
	if conns.sqlite != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "sqlite", Check: conns.sqlite.PingContext})
	}
	checks = append(checks, httpserver.HealthCheck{Name: "token_ledger", Check: ledger.Check})
	return checks
}

func runGracefulShutdown(srv *httpserver.Server, node *centrifuge.Node) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if node != nil {
			if err := node.Shutdown(shutdownCtx); err != nil {
				slog.Error("Feed node shutdown error", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"version", version.Get().String(),
		"env", cfg.AppEnv,
		"ledger_backend", cfg.LedgerBackend,
		"state_backend", cfg.StateBackend,
		"events_backend", cfg.EventsBackend,
	)

	reg := metrics.NewRegistry()
	novelMetrics := metrics.NewNovelMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)
	breakerMetrics := metrics.NewBreakerMetrics(reg)
	feedMetrics := metrics.NewFeedMetrics(reg)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), bootTimeout)
	defer cancelBoot()

	conns := openConnections(bootCtx, cfg, reg)
	defer conns.Close()

	backend := selectLedger(cfg, conns)
	store := selectStateStore(cfg, conns)

	limits := novel.Limits{MaxSentences: cfg.MaxSentences, MaxSentenceLength: cfg.MaxSentenceLength}
	state, err := app.LoadState(bootCtx, store, cfg.InitialPrompt, limits, clock.Now(), cfg.CadenceUnit)
	if err != nil {
		slog.Error("Failed to load novel state", "error", err)
		os.Exit(1)
	}

	admin := domain.Identity(cfg.AdminIdentity)
	if err := app.SeedGenesisSupply(bootCtx, backend, admin, cfg.InitialSupply); err != nil {
		slog.Error("Failed to seed genesis supply", "error", err)
		os.Exit(1)
	}

	ledger := breaker.NewLedger(backend, breaker.Settings{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Delay:            cfg.BreakerDelay,
		SuccessThreshold: 1,
	}, breakerMetrics)

	node, feedHandler := setupFeed(cfg, feedMetrics)
	publisher := setupPublisher(cfg, conns, node, feedMetrics)

	opts := app.Options{Admin: admin, CadenceUnit: cfg.CadenceUnit}
	settlement := selectSettlement(cfg, conns, ledger, backend, store, novelMetrics)
	svc := app.NewService(state, opts, ledger, settlement, publisher, novelMetrics, clock)

	srv := httpserver.NewServer(cfg, svc, httpMetrics, metrics.Handler(reg), feedHandler, healthChecks(conns, ledger))

	done := runGracefulShutdown(srv, node)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
