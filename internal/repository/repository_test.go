package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakefence/internal/db"
	"lakefence/internal/domain"
	"lakefence/internal/repository"
)

var ctx = context.Background()

func TestPrincipalLifecycle(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := repository.NewPrincipalRepo(writeDB, readDB)

	created, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = repo.GetByName(ctx, "nobody")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// Duplicate name.
	_, err = repo.Create(ctx, "alice")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAPIKeyLookup(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	principals := repository.NewPrincipalRepo(writeDB, readDB)
	keys := repository.NewAPIKeyRepo(writeDB, readDB)

	p, err := principals.Create(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, keys.Create(ctx, p.ID, "hash-1"))

	found, err := keys.GetPrincipalByKeyHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Name)

	_, err = keys.GetPrincipalByKeyHash(ctx, "hash-2")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// Same digest cannot be stored twice.
	err = keys.Create(ctx, p.ID, "hash-1")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestTenantGrants(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	principals := repository.NewPrincipalRepo(writeDB, readDB)
	grants := repository.NewTenantGrantRepo(writeDB, readDB)

	p, err := principals.Create(ctx, "alice")
	require.NoError(t, err)

	ok, err := grants.HasGrant(ctx, p.ID, "TENANT_100")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, grants.Grant(ctx, p.ID, "TENANT_100"))
	ok, err = grants.HasGrant(ctx, p.ID, "TENANT_100")
	require.NoError(t, err)
	assert.True(t, ok)

	listed, err := grants.ListForPrincipal(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, domain.TenantID("TENANT_100"), listed[0].TenantID)

	require.NoError(t, grants.Revoke(ctx, p.ID, "TENANT_100"))
	ok, err = grants.HasGrant(ctx, p.ID, "TENANT_100")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuditInsertAndList(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	audit := repository.NewAuditRepo(writeDB, readDB)

	errMsg := "boom"
	duration := int64(12)
	require.NoError(t, audit.Insert(ctx, &domain.AuditEntry{
		Principal: "alice",
		TenantID:  "TENANT_100",
		SQLText:   "SELECT 1",
		Status:    domain.AuditError,
		ErrorMessage: &errMsg,
		DurationMs:   &duration,
	}))
	require.NoError(t, audit.Insert(ctx, &domain.AuditEntry{
		Principal: "alice",
		TenantID:  "TENANT_100",
		SQLText:   "SELECT 2",
		Status:    domain.AuditAllowed,
	}))

	entries, err := audit.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var withErr domain.AuditEntry
	for _, e := range entries {
		if e.Status == domain.AuditError {
			withErr = e
		}
	}
	require.NotNil(t, withErr.ErrorMessage)
	assert.Equal(t, "boom", *withErr.ErrorMessage)
	require.NotNil(t, withErr.DurationMs)
	assert.EqualValues(t, 12, *withErr.DurationMs)
}
