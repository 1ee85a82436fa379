// Package app wires repositories, the secure engine, and services from the
// handles main() provides.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"lakefence/internal/config"
	"lakefence/internal/contextstore"
	"lakefence/internal/domain"
	"lakefence/internal/engine"
	"lakefence/internal/generator"
	"lakefence/internal/repository"
	"lakefence/internal/service"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	DuckDB  *sql.DB
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Engine     *engine.SecureEngine
	Store      contextstore.EngineStore
	Queries    *service.QueryService
	Analyst    *service.AnalystService // nil when no generator is configured
	Authz      *service.AuthorizationService
	APIKeyRepo *repository.APIKeyRepo
}

// New wires all repositories, the engine, and services, and ensures the
// data-plane schema exists.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	var store contextstore.EngineStore
	switch cfg.ContextBackend {
	case "variable":
		store = contextstore.NewVariableStore()
	default:
		store = contextstore.NewTableStore(deps.DuckDB)
	}

	if err := engine.EnsureSchema(ctx, deps.DuckDB, store); err != nil {
		return nil, err
	}

	principalRepo := repository.NewPrincipalRepo(deps.WriteDB, deps.ReadDB)
	apiKeyRepo := repository.NewAPIKeyRepo(deps.WriteDB, deps.ReadDB)
	grantRepo := repository.NewTenantGrantRepo(deps.WriteDB, deps.ReadDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB, deps.ReadDB)

	eng := engine.NewSecureEngine(deps.DuckDB, store, deps.Logger.With("component", "engine"))
	queries := service.NewQueryService(eng, grantRepo, auditRepo, deps.Logger.With("component", "query"))
	authz := service.NewAuthorizationService(principalRepo, apiKeyRepo, grantRepo)

	var analyst *service.AnalystService
	if cfg.GeneratorURL != "" {
		gen := generator.NewHTTPGenerator(cfg.GeneratorURL, cfg.GeneratorAPIKey, cfg.GeneratorTimeout)
		analyst = service.NewAnalystService(queries, eng, gen, deps.Logger.With("component", "analyst"))
	}

	return &App{
		Engine:     eng,
		Store:      store,
		Queries:    queries,
		Analyst:    analyst,
		Authz:      authz,
		APIKeyRepo: apiKeyRepo,
	}, nil
}

// SeedDemo loads demo sales rows and provisions demo principals with their
// tenant grants and well-known API keys. Development only.
func (a *App) SeedDemo(ctx context.Context, duck *sql.DB, logger *slog.Logger) error {
	if err := engine.SeedDemoData(ctx, duck); err != nil {
		return err
	}

	demo := []struct {
		name   string
		key    string
		tenant string
	}{
		{"demo-100", "demo-key-100", "TENANT_100"},
		{"demo-200", "demo-key-200", "TENANT_200"},
		{"demo-300", "demo-key-300", "TENANT_300"},
	}
	for _, d := range demo {
		p, err := a.Authz.EnsurePrincipal(ctx, d.name)
		if err != nil {
			return err
		}
		if err := a.Authz.GrantTenant(ctx, p.ID, domain.TenantID(d.tenant)); err != nil {
			return err
		}
		if err := a.Authz.IssueAPIKey(ctx, p.ID, d.key); err != nil {
			var conflict *domain.ConflictError
			if !errors.As(err, &conflict) {
				return err
			}
			// Key already issued on a previous run.
			logger.Debug("demo api key exists", "principal", d.name)
		}
	}
	logger.Info("demo data seeded", "principals", len(demo))
	return nil
}
