package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllowsSelectsOnView(t *testing.T) {
	g := New("sales")

	tests := []struct {
		name string
		sql  string
	}{
		{"simple select", "SELECT * FROM sales"},
		{"aggregate", "SELECT SUM(amount) FROM sales"},
		{"trailing semicolon", "SELECT region, SUM(amount) FROM sales GROUP BY region;"},
		{"lowercase", "select product_line, count(*) from sales group by 1"},
		{"alias", "SELECT s.amount FROM sales s WHERE s.quantity > 3"},
		{"as alias", "SELECT s.amount FROM sales AS s ORDER BY s.amount DESC LIMIT 10"},
		{"self join", "SELECT a.txn_id FROM sales a JOIN sales b ON a.region = b.region"},
		{"subquery", "SELECT * FROM sales WHERE amount > (SELECT AVG(amount) FROM sales)"},
		{"from subquery", "SELECT t.r FROM (SELECT region AS r FROM sales) t"},
		{"cte", "WITH top AS (SELECT * FROM sales ORDER BY amount DESC LIMIT 5) SELECT * FROM top"},
		{"multiple ctes", "WITH a AS (SELECT * FROM sales), b AS (SELECT * FROM a) SELECT * FROM b"},
		{"keyword in string", "SELECT * FROM sales WHERE product_name = 'DROP shipment'"},
		{"quoted view name", `SELECT * FROM "sales"`},
		{"comment", "-- top lines\nSELECT * FROM sales"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, g.Check(tt.sql))
		})
	}
}

func TestCheckRejects(t *testing.T) {
	g := New("sales")

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"empty", "", "empty query"},
		{"only semicolon", ";", "empty query"},
		{"raw table", "SELECT * FROM sales_raw", "not available"},
		{"context table", "SELECT * FROM tenant_context", "not available"},
		{"qualified raw table", "SELECT * FROM main.sales_raw", "not available"},
		{"insert", "INSERT INTO sales VALUES (1)", "only SELECT"},
		{"delete", "DELETE FROM sales", "only SELECT"},
		{"ddl", "DROP VIEW sales", "only SELECT"},
		{"piggyback statement", "SELECT * FROM sales; DROP VIEW sales", "multiple statements"},
		{"set variable", "SELECT * FROM sales WHERE 1=1 SET VARIABLE lakefence_tenant = 'T200'", `"SET"`},
		{"reset variable", "SELECT 1 RESET VARIABLE lakefence_tenant", `"RESET"`},
		{"file path from", "SELECT * FROM '/etc/hostname'", "literal table"},
		{"csv file from", "SELECT * FROM 'data.csv'", "literal table"},
		{"parquet file join", "SELECT * FROM sales JOIN 'x.parquet' ON true", "literal table"},
		{"file in from list", "SELECT * FROM sales, 'x.csv'", "literal table"},
		{"read_csv", "SELECT * FROM read_csv('/etc/passwd')", "prohibited function"},
		{"read_parquet", "SELECT * FROM read_parquet('s3://bucket/x')", "prohibited function"},
		{"duckdb_settings", "SELECT name FROM duckdb_settings()", "prohibited function"},
		{"table function", "SELECT * FROM range(10)", "not allowed"},
		{"attach", "ATTACH 'other.db'", "only SELECT"},
		{"unterminated string", "SELECT '", "unterminated string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(tt.sql)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckCTENamesDoNotLeakAccess(t *testing.T) {
	g := New("sales")

	// A CTE may shadow names, but referencing the raw table inside it
	// must still fail.
	err := g.Check("WITH x AS (SELECT * FROM sales_raw) SELECT * FROM x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales_raw")
}
