// Package contextstore implements the caller-scoped context broker: a
// mapping from execution-session keys to tenant identifiers with
// create/read/delete operations. The tenant-filtered view resolves the
// current caller's tenant through this mapping on every row access.
package contextstore

import (
	"context"
	"database/sql"
	"time"

	"lakefence/internal/domain"
)

// Session is the narrow slice of an execution session the store needs:
// its key, and statement execution pinned to the session's connection.
// Store mutations must run on the session's own connection so that
// engine-scoped backends (session variables) land in the right scope.
type Session interface {
	Key() domain.SessionKey
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store brokers tenant context for execution sessions.
//
// Contract:
//   - Set removes any existing record for the session key before inserting
//     (idempotent overwrite): a stale record from a crashed invocation must
//     not cause a duplicate-key error or silently keep the stale tenant.
//   - Lookup reports absent (ok=false) when no record exists. Absent filters
//     to the empty set, never to "all tenants".
//   - Clear is idempotent: clearing an absent key is a no-op, not an error.
//
// Only the secure executor calls these mutators.
type Store interface {
	Set(ctx context.Context, sess Session, tenant domain.TenantID) error
	Lookup(ctx context.Context, sess Session) (domain.TenantID, bool, error)
	Clear(ctx context.Context, sess Session) error
}

// EngineStore is a Store that can back a tenant-filtered DuckDB view.
type EngineStore interface {
	Store

	// EnsureBacking creates whatever engine-side storage the backend needs
	// (the keyed context table for TableStore; nothing for VariableStore).
	EnsureBacking(ctx context.Context, db *sql.DB) error

	// ViewPredicate returns the SQL predicate the filtered view places on
	// the raw table's tenant_id column. It references only the store's
	// backing storage, never anything caller query text can set, so the
	// filter is entirely outside the query's control.
	ViewPredicate() string
}

// Lister exposes the store's current contents for observability. A non-empty
// listing outside an in-flight invocation indicates a cleanup-path bug.
// The session-variable backend cannot implement this; its records are
// invisible outside their own sessions.
type Lister interface {
	Active(ctx context.Context) ([]domain.TenantRecord, error)
}

// Purger removes orphaned records older than the given age and reports how
// many were removed. Used by the sweeper.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
