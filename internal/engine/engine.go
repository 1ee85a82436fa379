// Package engine implements the secure executor: the privilege-elevated
// orchestration path that installs tenant context, runs caller-supplied SQL
// against the tenant-filtered view, and tears the context down on every
// exit path.
package engine

import (
	"context"
	"database/sql"
	"log/slog"

	"lakefence/internal/contextstore"
	"lakefence/internal/domain"
	"lakefence/internal/observability"
	"lakefence/internal/sqlguard"
)

// SecureEngine wraps a DuckDB handle and the context broker. Callers supply
// untrusted query text and a self-declared tenant; the engine guarantees
// that the declared tenant is the only one visible during the invocation.
// Whether the caller is entitled to declare that tenant is checked one
// layer up, before Execute is reached.
type SecureEngine struct {
	db     *sql.DB
	store  contextstore.EngineStore
	guard  *sqlguard.Guard
	logger *slog.Logger
}

// NewSecureEngine creates a SecureEngine over the given DuckDB handle and
// context store.
func NewSecureEngine(db *sql.DB, store contextstore.EngineStore, logger *slog.Logger) *SecureEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecureEngine{
		db:     db,
		store:  store,
		guard:  sqlguard.New(ViewName),
		logger: logger,
	}
}

// Execute runs query text with the declared tenant installed as the only
// visible tenant.
//
// The flow:
//  1. Screen the query text (single SELECT, view-only references).
//  2. Acquire an execution session (pinned connection + session key).
//  3. Defensive clear: remove any stale record a prior invocation on this
//     pooled session left behind, logging a warning if one is found.
//  4. Install the declared tenant into the context store.
//  5. Run the query against the view and materialize the rows.
//  6. Unconditionally clear the context, on success, failure, and caller
//     cancellation alike, retrying once before giving up.
//
// Errors from step 5 are wrapped as *domain.QueryError and surfaced to the
// caller unmodified after cleanup; nothing is retried at this layer, so the
// store is guaranteed clean for the caller's next attempt.
func (e *SecureEngine) Execute(ctx context.Context, tenant domain.TenantID, sqlText string) (_ *domain.RowSet, err error) {
	if tenant == "" {
		return nil, domain.ErrValidation("tenant id is required")
	}
	if err := e.guard.Check(sqlText); err != nil {
		return nil, domain.ErrValidation("%v", err)
	}

	sess, err := acquireSession(ctx, e.db)
	if err != nil {
		return nil, err
	}
	defer sess.Close() //nolint:errcheck

	// Defensive clear. Pooled connections reuse session keys, and a prior
	// invocation may have died before its own final clear ran.
	if stale, ok, lookErr := e.store.Lookup(ctx, sess); lookErr != nil {
		return nil, lookErr
	} else if ok {
		e.logger.Warn("stale tenant context detected, clearing",
			"session_key", sess.Key(), "stale_tenant", stale)
		observability.StaleContextsTotal.Inc()
	}
	if clearErr := e.store.Clear(ctx, sess); clearErr != nil {
		return nil, clearErr
	}

	if setErr := e.store.Set(ctx, sess, tenant); setErr != nil {
		// Never continue to execution without a verified context; leave the
		// session as clean as the store allows for the next invocation.
		_ = e.store.Clear(context.WithoutCancel(ctx), sess)
		return nil, setErr
	}

	defer func() {
		// Final clear runs on every path, including caller cancellation,
		// hence the cancellation-immune context.
		cleanupCtx := context.WithoutCancel(ctx)
		clearErr := e.store.Clear(cleanupCtx, sess)
		if clearErr != nil {
			clearErr = e.store.Clear(cleanupCtx, sess)
		}
		if clearErr != nil {
			e.logger.Error("tenant context cleanup failed",
				"session_key", sess.Key(), "error", clearErr)
			if err == nil {
				err = clearErr
			}
		}
	}()

	rows, queryErr := sess.QueryContext(ctx, sqlText)
	if queryErr != nil {
		return nil, &domain.QueryError{Err: queryErr}
	}
	defer rows.Close() //nolint:errcheck

	result, scanErr := scanRows(rows)
	if scanErr != nil {
		return nil, &domain.QueryError{Err: scanErr}
	}
	return result, nil
}

// ViewSchema describes the tenant-filtered view's columns for external
// collaborators (the NL-to-SQL generator). The tenant column does not
// appear; the view has none.
func (e *SecureEngine) ViewSchema(ctx context.Context) (domain.ViewSchema, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, ViewName)
	if err != nil {
		return domain.ViewSchema{}, err
	}
	defer rows.Close() //nolint:errcheck

	schema := domain.ViewSchema{Table: ViewName}
	for rows.Next() {
		var col domain.ViewColumn
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return domain.ViewSchema{}, err
		}
		schema.Columns = append(schema.Columns, col)
	}
	return schema, rows.Err()
}

// scanRows materializes *sql.Rows into a RowSet, converting byte slices to
// strings for JSON serialization.
func scanRows(rows *sql.Rows) (*domain.RowSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.RowSet{
		Columns:  cols,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}
