package service

import (
	"context"
	"log/slog"

	"lakefence/internal/domain"
	"lakefence/internal/engine"
	"lakefence/internal/generator"
)

// AnalystService answers natural-language questions: it hands the view
// schema to the generator, then routes the generated SQL through the same
// authorized, guarded, audited path as hand-written queries.
type AnalystService struct {
	queries   *QueryService
	engine    *engine.SecureEngine
	generator generator.Generator
	logger    *slog.Logger
}

func NewAnalystService(queries *QueryService, eng *engine.SecureEngine, gen generator.Generator, logger *slog.Logger) *AnalystService {
	return &AnalystService{queries: queries, engine: eng, generator: gen, logger: logger}
}

// AnalystAnswer pairs a result set with the SQL that produced it, so callers
// can show what was actually executed.
type AnalystAnswer struct {
	SQL    string          `json:"sql"`
	Result *domain.RowSet  `json:"result"`
	Tenant domain.TenantID `json:"tenant_id"`
}

// Ask generates SQL for the prompt and executes it for the declared tenant.
func (s *AnalystService) Ask(ctx context.Context, principal *domain.Principal, tenantID domain.TenantID, prompt string) (*AnalystAnswer, error) {
	if prompt == "" {
		return nil, domain.ErrValidation("prompt must not be empty")
	}

	schema, err := s.engine.ViewSchema(ctx)
	if err != nil {
		return nil, err
	}

	sqlQuery, err := s.generator.GenerateSQL(ctx, prompt, schema)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("generated sql", "tenant_id", tenantID, "sql", sqlQuery)

	result, err := s.queries.Execute(ctx, principal, tenantID, sqlQuery)
	if err != nil {
		return nil, err
	}

	return &AnalystAnswer{SQL: sqlQuery, Result: result, Tenant: tenantID}, nil
}
