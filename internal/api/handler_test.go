package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakefence/internal/api"
	"lakefence/internal/config"
	"lakefence/internal/contextstore"
	"lakefence/internal/db"
	"lakefence/internal/engine"
	"lakefence/internal/generator"
	"lakefence/internal/middleware"
	"lakefence/internal/repository"
	"lakefence/internal/service"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
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
	analyst := service.NewAnalystService(queries, eng,
		generator.Static{SQL: "SELECT SUM(amount) AS total FROM sales"}, logger)

	principal, err := authz.EnsurePrincipal(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, authz.IssueAPIKey(ctx, principal.ID, testAPIKey))
	require.NoError(t, authz.GrantTenant(ctx, principal.ID, "TENANT_100"))

	cfg := &config.Config{
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
		Auth:               config.AuthConfig{APIKeyHeader: "X-API-Key"},
	}
	auth := middleware.Auth(middleware.AuthConfig{
		Resolver: authz,
		APIKeys:  apiKeys,
	})

	handler := api.NewHandler(queries, analyst, authz, eng, store)
	srv := httptest.NewServer(api.NewRouter(cfg, handler, auth))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body interface{}, apiKey string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestQueryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, out := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_100", "sql": "SELECT SUM(amount) AS total FROM sales"},
		testAPIKey)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["row_count"])
	rows := out["rows"].([]interface{})
	assert.InDelta(t, 10, rows[0].([]interface{})[0].(float64), 0.001)
}

func TestQueryEndpointRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_100", "sql": "SELECT * FROM sales"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestQueryEndpointForbidsUngrantedTenant(t *testing.T) {
	srv := newTestServer(t)

	resp, out := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_200", "sql": "SELECT * FROM sales"},
		testAPIKey)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, out["message"], "TENANT_200")
}

func TestQueryEndpointRejectsRawTable(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_100", "sql": "SELECT * FROM sales_raw"},
		testAPIKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryEndpointValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"sql": "SELECT * FROM sales"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_100"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAskEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, out := doJSON(t, srv, http.MethodPost, "/v1/ask",
		map[string]string{"tenant_id": "TENANT_100", "prompt": "total sales"},
		testAPIKey)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out["sql"], "SUM(amount)")
	result := out["result"].(map[string]interface{})
	assert.EqualValues(t, 1, result["row_count"])
}

func TestSchemaEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, out := doJSON(t, srv, http.MethodGet, "/v1/schema", nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sales", out["table"])

	names := make([]string, 0)
	for _, c := range out["columns"].([]interface{}) {
		names = append(names, c.(map[string]interface{})["name"].(string))
	}
	assert.Contains(t, names, "amount")
	assert.NotContains(t, names, "tenant_id")
}

func TestContextsEndpointEmptyAtRest(t *testing.T) {
	srv := newTestServer(t)

	// Run a query first; its context must be gone by the time it returns.
	resp, _ := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_100", "sql": "SELECT * FROM sales"},
		testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := doJSON(t, srv, http.MethodGet, "/v1/contexts", nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, out["count"])
}

func TestGrantsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, out := doJSON(t, srv, http.MethodGet, "/v1/grants", nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tenants := out["tenants"].([]interface{})
	require.Len(t, tenants, 1)
	assert.Equal(t, "TENANT_100", tenants[0])
}

func TestAuditEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/v1/query",
		map[string]string{"tenant_id": "TENANT_100", "sql": "SELECT * FROM sales"},
		testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := doJSON(t, srv, http.MethodGet, "/v1/audit?limit=10", nil, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := out["entries"].([]interface{})
	require.NotEmpty(t, entries)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "ALLOWED", first["status"])
	assert.Equal(t, "alice", first["principal"])
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newTestServer(t)

	resp, out := doJSON(t, srv, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}
