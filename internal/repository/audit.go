package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lakefence/internal/domain"
)

type AuditRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewAuditRepo(writeDB, readDB *sql.DB) *AuditRepo {
	return &AuditRepo{writeDB: writeDB, readDB: readDB}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	var errMsg sql.NullString
	if e.ErrorMessage != nil {
		errMsg = sql.NullString{String: *e.ErrorMessage, Valid: true}
	}
	var duration sql.NullInt64
	if e.DurationMs != nil {
		duration = sql.NullInt64{Int64: *e.DurationMs, Valid: true}
	}

	_, err := r.writeDB.ExecContext(ctx, `
		INSERT INTO audit_log (id, principal, tenant_id, sql_text, status, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), e.Principal, string(e.TenantID), e.SQLText, e.Status, errMsg, duration)
	return mapDBError(err)
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, principal, tenant_id, sql_text, status, error_message, duration_ms, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var tenant string
		var errMsg sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Principal, &tenant, &e.SQLText, &e.Status,
			&errMsg, &duration, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TenantID = domain.TenantID(tenant)
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		if duration.Valid {
			e.DurationMs = &duration.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
