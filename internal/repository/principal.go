package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"lakefence/internal/domain"
)

type PrincipalRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewPrincipalRepo(writeDB, readDB *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{writeDB: writeDB, readDB: readDB}
}

func (r *PrincipalRepo) Create(ctx context.Context, name string) (*domain.Principal, error) {
	id := uuid.NewString()
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO principals (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	var p domain.Principal
	err := r.readDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM principals WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}

func (r *PrincipalRepo) GetByName(ctx context.Context, name string) (*domain.Principal, error) {
	var p domain.Principal
	err := r.readDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM principals WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &p, nil
}

func (r *PrincipalRepo) List(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, name, created_at FROM principals ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
