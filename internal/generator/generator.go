// Package generator turns natural-language prompts into SQL against the
// tenant-filtered view. The generator is an untrusted collaborator: it only
// ever sees the view schema (no tenant column, no tenant values), and
// everything it produces goes through the statement guard before execution.
package generator

import (
	"context"

	"lakefence/internal/domain"
)

// Generator produces one SELECT statement for a prompt, given the schema of
// the view the statement may reference.
type Generator interface {
	GenerateSQL(ctx context.Context, prompt string, schema domain.ViewSchema) (string, error)
}

// Static returns a fixed statement for every prompt. Used in tests and as a
// stand-in when no generator endpoint is configured.
type Static struct {
	SQL string
}

func (s Static) GenerateSQL(_ context.Context, _ string, _ domain.ViewSchema) (string, error) {
	return s.SQL, nil
}
