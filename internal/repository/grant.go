package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lakefence/internal/domain"
)

type TenantGrantRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewTenantGrantRepo(writeDB, readDB *sql.DB) *TenantGrantRepo {
	return &TenantGrantRepo{writeDB: writeDB, readDB: readDB}
}

func (r *TenantGrantRepo) Grant(ctx context.Context, principalID string, tenantID domain.TenantID) error {
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO tenant_grants (id, principal_id, tenant_id) VALUES (?, ?, ?)`,
		uuid.NewString(), principalID, string(tenantID))
	return mapDBError(err)
}

func (r *TenantGrantRepo) Revoke(ctx context.Context, principalID string, tenantID domain.TenantID) error {
	_, err := r.writeDB.ExecContext(ctx,
		`DELETE FROM tenant_grants WHERE principal_id = ? AND tenant_id = ?`,
		principalID, string(tenantID))
	return err
}

// HasGrant reports whether the principal may declare the tenant.
func (r *TenantGrantRepo) HasGrant(ctx context.Context, principalID string, tenantID domain.TenantID) (bool, error) {
	var n int
	err := r.readDB.QueryRowContext(ctx,
		`SELECT count(*) FROM tenant_grants WHERE principal_id = ? AND tenant_id = ?`,
		principalID, string(tenantID)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TenantGrantRepo) ListForPrincipal(ctx context.Context, principalID string) ([]domain.TenantGrant, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, principal_id, tenant_id, created_at
		FROM tenant_grants
		WHERE principal_id = ?
		ORDER BY tenant_id`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.TenantGrant
	for rows.Next() {
		var g domain.TenantGrant
		var tenant string
		if err := rows.Scan(&g.ID, &g.PrincipalID, &tenant, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.TenantID = domain.TenantID(tenant)
		out = append(out, g)
	}
	return out, rows.Err()
}
