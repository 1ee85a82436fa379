package contextstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lakefence/internal/domain"
)

// ContextTableName is the durable keyed table holding tenant records.
const ContextTableName = "tenant_context"

// SessionVariable is the DuckDB session variable carrying the execution
// session key. It is installed once per physical connection by the engine
// and is the only way the view can tell sessions apart.
const SessionVariable = "lakefence_session"

// TableStore backs the context broker with an explicit keyed DuckDB table.
// Rows are visible for audit and debugging, and can persist across process
// or pool boundaries, which is why the executor's defensive clear exists.
type TableStore struct {
	db *sql.DB // admin handle for Active/PurgeOlderThan, not for Set/Clear
}

// NewTableStore creates a TableStore. The db handle is only used for
// administrative reads and purges; all broker mutations run on the
// caller's session connection.
func NewTableStore(db *sql.DB) *TableStore {
	return &TableStore{db: db}
}

var (
	_ EngineStore = (*TableStore)(nil)
	_ Lister      = (*TableStore)(nil)
	_ Purger      = (*TableStore)(nil)
)

// EnsureBacking creates the tenant_context table. session_key carries no
// uniqueness constraint: DuckDB's index keeps deleted keys visible to
// concurrent transactions, so a constrained delete-then-insert of the same
// key fails under load. At-most-one record per key is guaranteed by the
// executor's clear-before-set protocol instead.
func (s *TableStore) EnsureBacking(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_key VARCHAR NOT NULL,
			tenant_id   VARCHAR NOT NULL,
			created_at  TIMESTAMP NOT NULL DEFAULT now()
		)`, ContextTableName))
	if err != nil {
		return fmt.Errorf("create %s: %w", ContextTableName, err)
	}
	return nil
}

// ViewPredicate resolves the session's tenant through the keyed table.
// When no record exists for the current session key (or no session key is
// installed at all), the subquery yields NULL and the comparison admits
// zero rows.
func (s *TableStore) ViewPredicate() string {
	return fmt.Sprintf(
		"tenant_id = (SELECT tc.tenant_id FROM %s tc WHERE tc.session_key = getvariable('%s'))",
		ContextTableName, SessionVariable,
	)
}

// Set installs the tenant record for the session, removing any existing
// record for the same key first.
func (s *TableStore) Set(ctx context.Context, sess Session, tenant domain.TenantID) error {
	if err := s.Clear(ctx, sess); err != nil {
		return err
	}
	_, err := sess.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (session_key, tenant_id) VALUES (?, ?)", ContextTableName),
		string(sess.Key()), string(tenant),
	)
	if err != nil {
		return &domain.ContextStoreError{Op: "set", Err: err}
	}
	return nil
}

// Lookup returns the tenant installed for the session, if any.
func (s *TableStore) Lookup(ctx context.Context, sess Session) (domain.TenantID, bool, error) {
	var tenant string
	err := sess.QueryRowContext(ctx,
		fmt.Sprintf("SELECT tenant_id FROM %s WHERE session_key = ?", ContextTableName),
		string(sess.Key()),
	).Scan(&tenant)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &domain.ContextStoreError{Op: "lookup", Err: err}
	}
	return domain.TenantID(tenant), true, nil
}

// Clear deletes the session's record. Clearing an absent key is a no-op.
func (s *TableStore) Clear(ctx context.Context, sess Session) error {
	_, err := sess.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE session_key = ?", ContextTableName),
		string(sess.Key()),
	)
	if err != nil {
		return &domain.ContextStoreError{Op: "clear", Err: err}
	}
	return nil
}

// Active lists all current tenant records.
func (s *TableStore) Active(ctx context.Context) ([]domain.TenantRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT session_key, tenant_id, created_at FROM %s ORDER BY created_at", ContextTableName))
	if err != nil {
		return nil, &domain.ContextStoreError{Op: "lookup", Err: err}
	}
	defer rows.Close() //nolint:errcheck

	var records []domain.TenantRecord
	for rows.Next() {
		var (
			key, tenant string
			createdAt   time.Time
		)
		if err := rows.Scan(&key, &tenant, &createdAt); err != nil {
			return nil, &domain.ContextStoreError{Op: "lookup", Err: err}
		}
		records = append(records, domain.TenantRecord{
			SessionKey: domain.SessionKey(key),
			TenantID:   domain.TenantID(tenant),
			CreatedAt:  createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ContextStoreError{Op: "lookup", Err: err}
	}
	return records, nil
}

// PurgeOlderThan deletes records older than age. A live invocation holds its
// record only for the duration of one query, so anything old enough to be
// purged was orphaned by a failed cleanup path.
func (s *TableStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE created_at < now() - ?::INTERVAL", ContextTableName),
		fmt.Sprintf("%d seconds", int64(age.Seconds())),
	)
	if err != nil {
		return 0, &domain.ContextStoreError{Op: "clear", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // driver can't report counts; purge still ran
	}
	return n, nil
}
