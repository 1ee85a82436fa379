// Package service implements the application layer: tenant authorization,
// audited query execution, and the natural-language analyst flow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lakefence/internal/domain"
	"lakefence/internal/engine"
	"lakefence/internal/observability"
)

// QueryService authorizes, executes, and audits queries against the
// tenant-filtered view. Authorization decides whether the principal may
// declare the tenant at all; everything below (context install, filtering,
// cleanup) is the engine's job.
type QueryService struct {
	engine *engine.SecureEngine
	grants domain.TenantGrantRepository
	audit  domain.AuditRepository
	logger *slog.Logger
}

func NewQueryService(eng *engine.SecureEngine, grants domain.TenantGrantRepository, audit domain.AuditRepository, logger *slog.Logger) *QueryService {
	return &QueryService{engine: eng, grants: grants, audit: audit, logger: logger}
}

// Execute runs sqlQuery on behalf of principal for the declared tenant.
func (s *QueryService) Execute(ctx context.Context, principal *domain.Principal, tenantID domain.TenantID, sqlQuery string) (*domain.RowSet, error) {
	start := time.Now()

	ok, err := s.grants.HasGrant(ctx, principal.ID, tenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		err := domain.ErrAccessDenied("principal %q has no grant for tenant %q", principal.Name, tenantID)
		s.logAudit(ctx, principal.Name, tenantID, sqlQuery, domain.AuditDenied, err.Error(), time.Since(start).Milliseconds())
		observability.QueriesTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	result, err := s.engine.Execute(ctx, tenantID, sqlQuery)
	duration := time.Since(start).Milliseconds()
	observability.QueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		status := domain.AuditError
		metric := "error"
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			status = domain.AuditDenied
			metric = "denied"
		}
		s.logAudit(ctx, principal.Name, tenantID, sqlQuery, status, err.Error(), duration)
		observability.QueriesTotal.WithLabelValues(metric).Inc()
		return nil, err
	}

	s.logAudit(ctx, principal.Name, tenantID, sqlQuery, domain.AuditAllowed, "", duration)
	observability.QueriesTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// Audit returns the most recent audit entries.
func (s *QueryService) Audit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.audit.ListRecent(ctx, limit)
}

func (s *QueryService) logAudit(ctx context.Context, principal string, tenantID domain.TenantID, sqlQuery, status, errMsg string, durationMs int64) {
	entry := &domain.AuditEntry{
		Principal:  principal,
		TenantID:   tenantID,
		SQLText:    sqlQuery,
		Status:     status,
		DurationMs: &durationMs,
	}
	if errMsg != "" {
		entry.ErrorMessage = &errMsg
	}

	// Best-effort: the query outcome stands even if audit persistence fails.
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit insert failed", "error", err, "principal", principal, "tenant_id", tenantID)
	}
}
