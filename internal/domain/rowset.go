package domain

// RowSet holds the structured output of a SQL query. Rows are fully
// materialized before the executing session is released, so a RowSet is
// safe to use after the tenant context has been cleared.
type RowSet struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}
