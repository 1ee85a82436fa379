package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lakefence/internal/domain"
)

// APIKeyRepo stores API keys. Only the SHA-256 hex digest of a key is ever
// persisted; the plaintext exists only at creation time.
type APIKeyRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewAPIKeyRepo(writeDB, readDB *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{writeDB: writeDB, readDB: readDB}
}

func (r *APIKeyRepo) Create(ctx context.Context, principalID, keyHash string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO api_keys (id, principal_id, key_hash) VALUES (?, ?, ?)`,
		uuid.NewString(), principalID, keyHash)
	return mapDBError(err)
}

// GetPrincipalByKeyHash resolves an API key digest to its principal.
func (r *APIKeyRepo) GetPrincipalByKeyHash(ctx context.Context, keyHash string) (*domain.Principal, error) {
	var p domain.Principal
	err := r.readDB.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.created_at
		FROM api_keys k
		JOIN principals p ON p.id = k.principal_id
		WHERE k.key_hash = ?`, keyHash).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}
