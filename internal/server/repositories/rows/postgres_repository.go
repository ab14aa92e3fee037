package rows

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldreport/internal/common"
	"github.com/dmitrijs2005/fieldreport/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, row *Row) (bool, error) {
	fields, err := json.Marshal(row.Fields)
	if err != nil {
		return false, fmt.Errorf("encode fields: %w", err)
	}
	keys := row.PhotoKeys
	if keys == nil {
		keys = []string{}
	}
	photos, err := json.Marshal(keys)
	if err != nil {
		return false, fmt.Errorf("encode photo keys: %w", err)
	}

	query :=
		`INSERT INTO submissions (id, received_at, category, fields, photo_keys)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, row.ID, row.ReceivedAt, row.Category, fields, photos)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Row, error) {
	query :=
		`SELECT id, received_at, category, fields, photo_keys FROM submissions
		 WHERE id = $1`

	row := &Row{}
	var fields, photos []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&row.ID, &row.ReceivedAt, &row.Category, &fields, &photos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(fields, &row.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w: %w", common.ErrCorrupt, err)
	}
	if err := json.Unmarshal(photos, &row.PhotoKeys); err != nil {
		return nil, fmt.Errorf("decode photo keys: %w: %w", common.ErrCorrupt, err)
	}
	return row, nil
}
