// Command grant-tokens credits tokens to an identity on a persistent ledger backend.
// With -marker the grant is applied at most once, so the command is safe to re-run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/pscheid92/worldnovel/internal/adapter/postgres"
	"github.com/pscheid92/worldnovel/internal/adapter/redis"
	"github.com/pscheid92/worldnovel/internal/adapter/sqlite"
	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/pscheid92/worldnovel/internal/platform/config"
	"github.com/pscheid92/worldnovel/internal/platform/logging"
)

const grantTimeout = 30 * time.Second

type funder interface {
	domain.TokenFunder
	BalanceOf(ctx context.Context, id domain.Identity) (int64, error)
}

type grantRequest struct {
	Identity domain.Identity
	Amount   int64
	Marker   string
	DryRun   bool
}

func main() {
	var (
		backend  = flag.String("backend", os.Getenv("LEDGER_BACKEND"), "Ledger backend: postgres, redis or sqlite (or set LEDGER_BACKEND env)")
		target   = flag.String("url", "", "Database URL, Redis URL or SQLite path (defaults to DATABASE_URL, REDIS_URL or SQLITE_PATH)")
		identity = flag.String("identity", "", "Identity to credit")
		amount   = flag.Int64("amount", 0, "Tokens to credit")
		marker   = flag.String("marker", "", "Idempotency marker; a marker already used is not credited again")
		dryRun   = flag.Bool("dry-run", false, "Dry run mode (report only, don't credit)")
		verbose  = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, "text")

	req := grantRequest{Identity: domain.Identity(*identity), Amount: *amount, Marker: *marker, DryRun: *dryRun}
	if err := req.validate(); err != nil {
		log.Fatal(err)
	}

	if *target == "" {
		*target = defaultTarget(*backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), grantTimeout)
	defer cancel()

	f, closer, err := openFunder(ctx, *backend, *target)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer func() { _ = closer.Close() }()
	slog.Info("Connected to ledger", "backend", *backend, "target", sanitizeURL(*target))

	if err := grant(ctx, f, req); err != nil {
		log.Fatalf("Grant failed: %v", err)
	}
}

func (r grantRequest) validate() error {
	if r.Identity == domain.NoIdentity {
		return errors.New("identity required (--identity)")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be positive (--amount)")
	}
	return nil
}

func defaultTarget(backend string) string {
	switch backend {
	case config.BackendPostgres:
		return os.Getenv("DATABASE_URL")
	case config.BackendRedis:
		return os.Getenv("REDIS_URL")
	case config.BackendSQLite:
		return os.Getenv("SQLITE_PATH")
	default:
		return ""
	}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func openFunder(ctx context.Context, backend, target string) (funder, io.Closer, error) {
	if target == "" {
		return nil, nil, fmt.Errorf("no connection target for backend %q (--url)", backend)
	}

	switch backend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, target, nil)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewLedger(pool), closeFunc(func() error { pool.Close(); return nil }), nil
	case config.BackendRedis:
		rdb, err := redis.NewClient(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewLedger(rdb), rdb, nil
	case config.BackendSQLite:
		db, err := sqlite.Open(target)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewLedger(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend %q: must be postgres, redis or sqlite", backend)
	}
}

func grant(ctx context.Context, f funder, req grantRequest) error {
	before, err := f.BalanceOf(ctx, req.Identity)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	slog.Debug("Current balance", "identity", req.Identity.String(), "balance", before)

	if req.DryRun {
		slog.Info("Dry run, nothing credited",
			"identity", req.Identity.String(),
			"amount", req.Amount,
			"marker", req.Marker,
			"balance_after", before+req.Amount)
		return nil
	}

	applied := true
	if req.Marker != "" {
		applied, err = f.CreditOnce(ctx, req.Marker, req.Identity, req.Amount)
	} else {
		err = f.Credit(ctx, req.Identity, req.Amount)
	}
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}

	after, err := f.BalanceOf(ctx, req.Identity)
	if err != nil {
		return fmt.Errorf("verify balance: %w", err)
	}

	if !applied {
		slog.Warn("Marker already used, nothing credited", "marker", req.Marker, "identity", req.Identity.String(), "balance", after)
		return nil
	}
	slog.Info("Tokens granted",
		"identity", req.Identity.String(),
		"amount", req.Amount,
		"balance_before", before,
		"balance_after", after)
	return nil
}

// sanitizeURL hides the password of a connection URL for logging. Paths pass through.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
