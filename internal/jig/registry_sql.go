package jig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// SQLRegistry reads the jigs mirror table kept in the service database. The
// authoring platform replicates published jigs into it; this service never
// writes the table.
type SQLRegistry struct {
	db *sql.DB
}

func NewSQLRegistry(db *sql.DB) *SQLRegistry { return &SQLRegistry{db: db} }

func (r *SQLRegistry) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM jigs WHERE id=$1`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLRegistry) IsAuthor(ctx context.Context, id uuid.UUID, caller uuid.UUID) (bool, error) {
	var author string
	err := r.db.QueryRowContext(ctx, `SELECT author_id FROM jigs WHERE id=$1`, id.String()).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return author == caller.String(), nil
}

func (r *SQLRegistry) ModuleIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT module_ids_json FROM jigs WHERE id=$1`, id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return ids, true, nil
}
