package engine

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"lakefence/internal/domain"
)

// Demo tenants. TENANT_100 gets more rows and noticeably higher sales so
// that tenant isolation is visually verifiable in query results.
var demoTenants = []struct {
	id         domain.TenantID
	weight     float64
	multiplier float64
}{
	{"TENANT_100", 0.45, 2.5},
	{"TENANT_200", 0.30, 1.0},
	{"TENANT_300", 0.25, 0.8},
}

var demoProducts = map[string][]string{
	"Electronics": {
		`Laptop Pro 15"`, "Wireless Mouse", "USB-C Hub", "Mechanical Keyboard",
		"4K Monitor", "Webcam HD", "Bluetooth Speaker", "Noise-Canceling Headphones",
	},
	"Furniture": {
		"Standing Desk", "Ergonomic Chair", "Filing Cabinet", "Bookshelf",
		"Conference Table", "Office Lamp", "Whiteboard", "Monitor Arm",
	},
	"Software": {
		"Project Management Suite", "CRM License", "Analytics Platform",
		"Security Suite", "Collaboration Tools", "Design Software",
		"Database License", "Cloud Storage Plan",
	},
}

var demoRegions = []string{"North", "South", "East", "West", "EMEA"}

var demoBasePrices = map[string][2]float64{
	"Electronics": {50, 2000},
	"Furniture":   {100, 3000},
	"Software":    {200, 5000},
}

// SeedDemoData inserts ~150 synthetic sales rows across the demo tenants.
// Idempotent: skips if the raw table already has rows. Deterministic seed
// so repeated demo runs produce the same dataset.
func SeedDemoData(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s", RawTableName)).Scan(&count); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(42)) //nolint:gosec // demo data, determinism wanted
	lines := []string{"Electronics", "Furniture", "Software"}
	end := time.Now()

	stmt, err := db.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (txn_id, order_date, product_line, product_name, region,
		                quantity, unit_price, amount, tenant_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, RawTableName))
	if err != nil {
		return fmt.Errorf("prepare seed insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	const numRows = 150
	for i := 0; i < numRows; i++ {
		tenant := pickTenant(rng)

		line := lines[rng.Intn(len(lines))]
		products := demoProducts[line]
		prices := demoBasePrices[line]

		orderDate := end.AddDate(0, 0, -rng.Intn(365)).Format("2006-01-02")
		quantity := 1 + rng.Intn(20)
		unitPrice := (prices[0] + rng.Float64()*(prices[1]-prices[0])) * tenant.multiplier

		_, err := stmt.ExecContext(ctx,
			fmt.Sprintf("TXN-%05d", i+1),
			orderDate,
			line,
			products[rng.Intn(len(products))],
			demoRegions[rng.Intn(len(demoRegions))],
			quantity,
			unitPrice,
			float64(quantity)*unitPrice,
			string(tenant.id),
		)
		if err != nil {
			return fmt.Errorf("seed row %d: %w", i, err)
		}
	}

	return nil
}

func pickTenant(rng *rand.Rand) struct {
	id         domain.TenantID
	weight     float64
	multiplier float64
} {
	r := rng.Float64()
	cumulative := 0.0
	for _, t := range demoTenants {
		cumulative += t.weight
		if r <= cumulative {
			return t
		}
	}
	return demoTenants[len(demoTenants)-1]
}
