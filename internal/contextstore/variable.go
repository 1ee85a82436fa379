package contextstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lakefence/internal/domain"
)

// TenantVariable is the DuckDB session variable carrying the installed
// tenant when the variable backend is selected.
const TenantVariable = "lakefence_tenant"

// VariableStore backs the context broker with a DuckDB session-scoped
// variable. The engine scopes the variable to the connection itself, so
// records cannot leak across live sessions and vanish when the session
// ends. The trade-off: contents are invisible for audit (no Lister), and
// pooled connections still carry the variable across invocations, so the
// defensive/unconditional clear discipline applies unchanged.
type VariableStore struct{}

// NewVariableStore creates a VariableStore.
func NewVariableStore() *VariableStore {
	return &VariableStore{}
}

var _ EngineStore = (*VariableStore)(nil)

// EnsureBacking is a no-op; the engine provides the storage.
func (s *VariableStore) EnsureBacking(_ context.Context, _ *sql.DB) error {
	return nil
}

// ViewPredicate compares against the session variable. Unset (or cleared)
// variables read as NULL, which admits zero rows.
func (s *VariableStore) ViewPredicate() string {
	return fmt.Sprintf("tenant_id = getvariable('%s')", TenantVariable)
}

// Set installs the tenant into the session variable, overwriting any
// previous value.
func (s *VariableStore) Set(ctx context.Context, sess Session, tenant domain.TenantID) error {
	// SET VARIABLE does not take bind parameters; the value is inlined with
	// quote escaping.
	_, err := sess.ExecContext(ctx, fmt.Sprintf(
		"SET VARIABLE %s = '%s'", TenantVariable, escapeSingleQuotes(string(tenant)),
	))
	if err != nil {
		return &domain.ContextStoreError{Op: "set", Err: err}
	}
	return nil
}

// Lookup reads the session variable; NULL means absent.
func (s *VariableStore) Lookup(ctx context.Context, sess Session) (domain.TenantID, bool, error) {
	var tenant sql.NullString
	err := sess.QueryRowContext(ctx,
		fmt.Sprintf("SELECT getvariable('%s')", TenantVariable),
	).Scan(&tenant)
	if err != nil {
		return "", false, &domain.ContextStoreError{Op: "lookup", Err: err}
	}
	if !tenant.Valid || tenant.String == "" {
		return "", false, nil
	}
	return domain.TenantID(tenant.String), true, nil
}

// Clear resets the variable to NULL. Setting NULL rather than RESET keeps
// the operation idempotent whether or not the variable was ever set.
func (s *VariableStore) Clear(ctx context.Context, sess Session) error {
	_, err := sess.ExecContext(ctx, fmt.Sprintf("SET VARIABLE %s = NULL", TenantVariable))
	if err != nil {
		return &domain.ContextStoreError{Op: "clear", Err: err}
	}
	return nil
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
