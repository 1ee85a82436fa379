package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakefence/internal/contextstore"
	"lakefence/internal/db"
	"lakefence/internal/domain"
	"lakefence/internal/engine"
	"lakefence/internal/generator"
	"lakefence/internal/repository"
	"lakefence/internal/service"
)

var ctx = context.Background()

type fixture struct {
	queries   *service.QueryService
	analyst   *service.AnalystService
	authz     *service.AuthorizationService
	audit     *repository.AuditRepo
	principal *domain.Principal
}

func setup(t *testing.T, gen generator.Generator) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	duck, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })

	store := contextstore.NewTableStore(duck)
	require.NoError(t, engine.EnsureSchema(ctx, duck, store))
	_, err = duck.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s VALUES
			('TXN-00001', '2026-01-05', 'Electronics', '4K Monitor', 'North', 1, 10, 10, 'TENANT_100'),
			('TXN-00002', '2026-02-10', 'Furniture', 'Standing Desk', 'South', 1, 20, 20, 'TENANT_200')`,
		engine.RawTableName))
	require.NoError(t, err)

	writeDB, readDB := db.OpenTestSQLite(t)
	principals := repository.NewPrincipalRepo(writeDB, readDB)
	apiKeys := repository.NewAPIKeyRepo(writeDB, readDB)
	grants := repository.NewTenantGrantRepo(writeDB, readDB)
	audit := repository.NewAuditRepo(writeDB, readDB)

	eng := engine.NewSecureEngine(duck, store, logger)
	queries := service.NewQueryService(eng, grants, audit, logger)
	authz := service.NewAuthorizationService(principals, apiKeys, grants)
	analyst := service.NewAnalystService(queries, eng, gen, logger)

	principal, err := authz.EnsurePrincipal(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, authz.GrantTenant(ctx, principal.ID, "TENANT_100"))

	return &fixture{queries: queries, analyst: analyst, authz: authz, audit: audit, principal: principal}
}

func lastAudit(t *testing.T, f *fixture) domain.AuditEntry {
	t.Helper()
	entries, err := f.audit.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func TestExecuteGrantedTenant(t *testing.T) {
	f := setup(t, nil)

	result, err := f.queries.Execute(ctx, f.principal, "TENANT_100", "SELECT SUM(amount) FROM sales")
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount)
	assert.InDelta(t, 10, result.Rows[0][0].(float64), 0.001)

	entry := lastAudit(t, f)
	assert.Equal(t, domain.AuditAllowed, entry.Status)
	assert.Equal(t, "alice", entry.Principal)
	assert.Equal(t, domain.TenantID("TENANT_100"), entry.TenantID)
	require.NotNil(t, entry.DurationMs)
}

func TestExecuteWithoutGrantIsDenied(t *testing.T) {
	f := setup(t, nil)

	_, err := f.queries.Execute(ctx, f.principal, "TENANT_200", "SELECT * FROM sales")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	entry := lastAudit(t, f)
	assert.Equal(t, domain.AuditDenied, entry.Status)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "TENANT_200")
}

func TestExecuteGuardRejectionIsAuditedAsDenied(t *testing.T) {
	f := setup(t, nil)

	_, err := f.queries.Execute(ctx, f.principal, "TENANT_100", "SELECT * FROM sales_raw")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)

	entry := lastAudit(t, f)
	assert.Equal(t, domain.AuditDenied, entry.Status)
}

func TestExecuteEngineErrorIsAudited(t *testing.T) {
	f := setup(t, nil)

	_, err := f.queries.Execute(ctx, f.principal, "TENANT_100", "SELECT no_such_column FROM sales")
	var queryErr *domain.QueryError
	require.ErrorAs(t, err, &queryErr)

	entry := lastAudit(t, f)
	assert.Equal(t, domain.AuditError, entry.Status)
}

func TestAskRunsGeneratedSQLThroughGuard(t *testing.T) {
	f := setup(t, generator.Static{SQL: "SELECT region, SUM(amount) AS total FROM sales GROUP BY region"})

	answer, err := f.analyst.Ask(ctx, f.principal, "TENANT_100", "total sales by region")
	require.NoError(t, err)
	assert.Contains(t, answer.SQL, "GROUP BY region")
	assert.Equal(t, domain.TenantID("TENANT_100"), answer.Tenant)
	require.Equal(t, 1, answer.Result.RowCount)
	assert.Equal(t, "North", answer.Result.Rows[0][0])
}

func TestAskRejectsHostileGeneratorOutput(t *testing.T) {
	// A compromised generator cannot reach the raw table: its output goes
	// through the same statement guard as caller SQL.
	f := setup(t, generator.Static{SQL: "SELECT tenant_id, amount FROM sales_raw"})

	_, err := f.analyst.Ask(ctx, f.principal, "TENANT_100", "show me everything")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestAskEmptyPrompt(t *testing.T) {
	f := setup(t, nil)

	_, err := f.analyst.Ask(ctx, f.principal, "TENANT_100", "")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestGrantTenantIsIdempotent(t *testing.T) {
	f := setup(t, nil)

	require.NoError(t, f.authz.GrantTenant(ctx, f.principal.ID, "TENANT_100"))

	grants, err := f.authz.Grants(ctx, f.principal.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}
