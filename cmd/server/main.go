// Package main is the entry point for the lakefence server: a multi-tenant
// sales analytics API over a shared DuckDB table, where every query runs
// against a tenant-filtered view scoped by a per-session context broker.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"lakefence/internal/api"
	"lakefence/internal/app"
	"lakefence/internal/config"
	"lakefence/internal/contextstore"
	internaldb "lakefence/internal/db"
	"lakefence/internal/middleware"
	"lakefence/internal/observability"
	"lakefence/internal/sweeper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Data plane.
	duck, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer duck.Close() //nolint:errcheck

	// Metastore.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 0)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrate metastore: %w", err)
	}

	application, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		DuckDB:  duck,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	logger.Info("schema ready", "backend", cfg.ContextBackend)

	if cfg.SeedDemo {
		if err := application.SeedDemo(ctx, duck, logger); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	// JWT validator: OIDC when an issuer is configured, HS256 for local dev.
	var validator middleware.JWTValidator
	switch {
	case cfg.Auth.OIDCEnabled():
		validator, err = middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience)
		if err != nil {
			return fmt.Errorf("oidc validator: %w", err)
		}
	case cfg.Auth.JWTSecret != "":
		validator, err = middleware.NewHS256Validator(cfg.Auth.JWTSecret)
		if err != nil {
			return fmt.Errorf("jwt validator: %w", err)
		}
	}

	var apiKeys middleware.APIKeyLookup
	if cfg.Auth.APIKeyEnabled {
		apiKeys = application.APIKeyRepo
	}
	auth := middleware.Auth(middleware.AuthConfig{
		Validator:    validator,
		Resolver:     application.Authz,
		APIKeys:      apiKeys,
		APIKeyHeader: cfg.Auth.APIKeyHeader,
		NameClaim:    cfg.Auth.NameClaim,
	})

	// Observability and the sweeper only make sense for backends whose
	// records outlive their session.
	var lister contextstore.Lister
	if tableStore, ok := application.Store.(*contextstore.TableStore); ok {
		lister = tableStore
		observability.RegisterActiveContexts(func() float64 {
			records, err := tableStore.Active(context.Background())
			if err != nil {
				return -1
			}
			return float64(len(records))
		})

		sw := sweeper.New(tableStore, cfg.SweepSchedule, cfg.SweepMaxAge,
			logger.With("component", "sweeper"))
		if err := sw.Start(); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		defer sw.Stop()
	}

	handler := api.NewHandler(application.Queries, application.Analyst,
		application.Authz, application.Engine, lister)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(cfg, handler, auth),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("lakefence listening", "addr", cfg.ListenAddr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
