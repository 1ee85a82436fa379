package engine

import (
	"context"
	"database/sql"
	"fmt"

	"lakefence/internal/contextstore"
)

// Object names for the data plane. The raw table carries the tenant column;
// the view does not. Callers are only ever granted the view.
const (
	RawTableName = "sales_raw"
	ViewName     = "sales"
)

// EnsureSchema creates the raw multi-tenant table, the store's backing
// storage, and the tenant-filtered view. Idempotent.
//
// The view presents the business columns minus tenant_id, filtered by the
// context store's predicate. The predicate references only the store's
// backing storage, so query text running against the view cannot influence
// it: a SELECT * still cannot escape the filter.
func EnsureSchema(ctx context.Context, db *sql.DB, store contextstore.EngineStore) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			txn_id       VARCHAR NOT NULL,
			order_date   DATE NOT NULL,
			product_line VARCHAR NOT NULL,
			product_name VARCHAR NOT NULL,
			region       VARCHAR NOT NULL,
			quantity     INTEGER NOT NULL,
			unit_price   DOUBLE NOT NULL,
			amount       DOUBLE NOT NULL,
			tenant_id    VARCHAR NOT NULL
		)`, RawTableName))
	if err != nil {
		return fmt.Errorf("create %s: %w", RawTableName, err)
	}

	if err := store.EnsureBacking(ctx, db); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE OR REPLACE VIEW %s AS
		SELECT txn_id, order_date, product_line, product_name, region,
		       quantity, unit_price, amount
		FROM %s
		WHERE %s`, ViewName, RawTableName, store.ViewPredicate()))
	if err != nil {
		return fmt.Errorf("create view %s: %w", ViewName, err)
	}

	return nil
}
