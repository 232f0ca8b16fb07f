package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRowsSchema creates the table backing PostgresRowStore
const JobRowsSchema = `
CREATE TABLE IF NOT EXISTS job_rows (
    row_number INTEGER PRIMARY KEY CHECK (row_number > 0),
    cells      TEXT[]  NOT NULL DEFAULT '{}',
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

// PostgresRowStore implements RowStore on the job_rows table. The row_number
// column plays the role of the sheet row; cells are a 1-based TEXT array.
type PostgresRowStore struct {
	db *pgxpool.Pool
}

// NewPostgresRowStore creates a new Postgres-backed row store
func NewPostgresRowStore(db *pgxpool.Pool) *PostgresRowStore {
	return &PostgresRowStore{db: db}
}

// Rows returns every row in row order
func (r *PostgresRowStore) Rows(ctx context.Context) ([][]string, error) {
	query := `
		SELECT array_replace(cells, NULL, '')
		FROM job_rows
		ORDER BY row_number`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		var cells []string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		result = append(result, cells)
	}

	return result, rows.Err()
}

// Cell reads one cell
func (r *PostgresRowStore) Cell(ctx context.Context, row, col int) (string, error) {
	query := `
		SELECT COALESCE(cells[$2], '')
		FROM job_rows
		WHERE row_number = $1`

	var value string
	err := r.db.QueryRow(ctx, query, row, col+1).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// UpdateCell writes one cell, creating the row when missing
func (r *PostgresRowStore) UpdateCell(ctx context.Context, row, col int, value string) error {
	query := `
		INSERT INTO job_rows (row_number, cells)
		VALUES ($1, '{}')
		ON CONFLICT (row_number) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, row); err != nil {
		return err
	}

	query = `
		UPDATE job_rows SET
			cells[$2] = $3,
			updated_at = NOW()
		WHERE row_number = $1`

	_, err := r.db.Exec(ctx, query, row, col+1, value)
	return err
}

// AppendRow inserts values after the highest row number
func (r *PostgresRowStore) AppendRow(ctx context.Context, values []string) (int, error) {
	query := `
		INSERT INTO job_rows (row_number, cells)
		SELECT COALESCE(MAX(row_number), 0) + 1, $1
		FROM job_rows
		RETURNING row_number`

	var rowNumber int
	err := r.db.QueryRow(ctx, query, values).Scan(&rowNumber)
	return rowNumber, err
}

// Reset empties the table and writes the header as row 1
func (r *PostgresRowStore) Reset(ctx context.Context, header []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, JobRowsSchema); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `TRUNCATE job_rows`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO job_rows (row_number, cells) VALUES (1, $1)`, header); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
