// Package repository implements SQLite-backed persistence for the metastore:
// principals, API keys, tenant grants, and the audit log.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"lakefence/internal/domain"
)

// mapDBError converts SQLite errors to domain errors.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}
