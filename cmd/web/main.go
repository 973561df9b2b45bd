// cmd/web/main.go
//
// Newsletter service – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (.env → conf/global.yaml → NEWSLETTER_* env), with
//     `vault:` values resolved through Vault when enabled.
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Open the database pool and, when migrate_on_start is set, apply the
//     embedded goose migrations.  driver "memory" skips the database.
//
//  4. Build the store, email client, and subscription workflow.
//
//  5. Build the chi router:
//
//     • RequestID, Recoverer      – chi middleware
//     • ForceHTTPS, Security      – redirects and response headers
//     • requestinfo               – UA + geo enrichment
//     • RequestLogger             – one line per request
//     • components                – subscriptions, health
//     • /metrics                  – Prometheus
//
//  6. Serve until SIGINT/SIGTERM, then drain for up to ShutdownTimeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/newsletter/components/health"
	"github.com/yanizio/newsletter/components/subscriptions"
	"github.com/yanizio/newsletter/internal/component"
	"github.com/yanizio/newsletter/internal/config"
	"github.com/yanizio/newsletter/internal/database"
	"github.com/yanizio/newsletter/internal/emailclient"
	"github.com/yanizio/newsletter/internal/logger"
	"github.com/yanizio/newsletter/internal/middleware"
	"github.com/yanizio/newsletter/internal/requestinfo"
	"github.com/yanizio/newsletter/internal/server"
	"github.com/yanizio/newsletter/internal/store"
	"github.com/yanizio/newsletter/internal/subscription"
	"github.com/yanizio/newsletter/internal/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("newsletter: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx, openVault)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(logOptions(cfg, logger.RunningInTTY()))
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Database ────────────────────────────────────────────────────
	//
	st, closeStore, err := openStore(ctx, cfg.Database, logOut)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	//
	// ── 4.  Workflow ────────────────────────────────────────────────────
	//
	sender, err := cfg.EmailClient.Sender()
	if err != nil {
		return fmt.Errorf("sender email: %w", err)
	}
	mail := emailclient.New(cfg.EmailClient.BaseURL, sender,
		cfg.EmailClient.AuthorizationToken, cfg.EmailClient.Timeout, logOut.Named("email"))

	wf := subscription.New(st, mail, cfg.Application.BaseURL, logOut.Named("subscription"))

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	enricher, err := requestinfo.NewEnricher(cfg.GeoIP.DatabasePath, logOut)
	if err != nil {
		return err
	}
	defer enricher.Close()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)
	r.Use(enricher.Middleware)
	r.Use(middleware.RequestLogger(logOut.Named("http")))

	names, err := component.Mount(r, logOut,
		subscriptions.New(wf, logOut),
		health.New(st, logOut),
	)
	if err != nil {
		return err
	}
	r.Handle("/metrics", promhttp.Handler())
	logOut.Info("components mounted", zap.Strings("components", names))

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logOut.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logOut.Info("shutting down", zap.Duration("drain", server.ShutdownTimeout))
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// openVault connects lazily; the config loader calls it only when a value
// references Vault.  The client logs through the global logger, which
// logger.New replaces once config is loaded.
func openVault(ctx context.Context) (config.KVReader, error) {
	return vault.New(ctx, nil)
}

// subscriptionStore is what the workflow and the health probe share.
type subscriptionStore interface {
	subscription.Store
	health.Pinger
}

// openStore connects the configured backend.  The returned func releases it.
func openStore(ctx context.Context, cfg config.Database, log *zap.Logger) (subscriptionStore, func() error, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory store; subscriptions are lost on exit")
		return store.NewMemory(), func() error { return nil }, nil
	}

	log.Info("connecting to database", zap.String("driver", cfg.Driver))
	db, err := database.Open(ctx, cfg.Driver, cfg.DSN.Expose(), database.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("database online")

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("migrations applied")
	}
	return store.NewSQL(db), db.Close, nil
}

func logOptions(cfg *config.Config, console bool) logger.Options {
	return logger.Options{
		Dir:        filepath.Join(cfg.Paths.Root, "logs"),
		Level:      cfg.Log.Level,
		Console:    console,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
}
