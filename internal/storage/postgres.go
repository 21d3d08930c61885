package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresWriter stores picture records as JSONB documents and merges with ||
type PostgresWriter struct {
	db    *sql.DB
	table string
}

// NewPostgresWriter creates the pictures table if needed
func NewPostgresWriter(ctx context.Context, db *sql.DB) (*PostgresWriter, error) {
	w := &PostgresWriter{
		db:    db,
		table: pq.QuoteIdentifier(CollectionPictures),
	}

	if err := w.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure pictures table: %w", err)
	}

	return w, nil
}

func (w *PostgresWriter) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, w.table)

	_, err := w.db.ExecContext(ctx, query)
	return err
}

// MergePicture upserts the record, keeping keys of the existing document that are not set here
func (w *PostgresWriter) MergePicture(ctx context.Context, rec PictureRecord) (time.Time, error) {
	if rec.Key == "" {
		return time.Time{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	data, err := json.Marshal(rec.fields())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to marshal picture: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE
		SET data = %[1]s.data || EXCLUDED.data,
		    updated_at = NOW()
		RETURNING updated_at
	`, w.table)

	var updatedAt time.Time
	if err := w.db.QueryRowContext(ctx, query, rec.Key, string(data)).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("failed to merge picture %s: %w", rec.Key, err)
	}

	return updatedAt, nil
}
