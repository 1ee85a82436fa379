package domain

// ViewColumn is one column of the tenant-filtered view's schema.
type ViewColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ViewSchema describes the tenant-filtered view for external collaborators,
// notably the NL-to-SQL generator. It never includes a tenant column; the
// view has none.
type ViewSchema struct {
	Table   string       `json:"table"`
	Columns []ViewColumn `json:"columns"`
}
