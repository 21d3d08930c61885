// Package dedupe keeps a ledger of deliveries per image so redelivered
// storage notifications are visible.
package dedupe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tracker tracks duplicate deliveries of the same image
type Tracker struct {
	db *sql.DB
}

// NewTracker creates a new dedupe tracker
func NewTracker(ctx context.Context, db *sql.DB) (*Tracker, error) {
	tracker := &Tracker{db: db}

	if err := tracker.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure dedupe table: %w", err)
	}

	return tracker, nil
}

// Key identifies an image in the ledger
func Key(bucket, name string) string {
	return bucket + "/" + name
}

// ensureTable creates the process_dedupe table if it doesn't exist
func (t *Tracker) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS process_dedupe (
			image_key TEXT PRIMARY KEY,
			pipeline TEXT,
			pipeline_version INTEGER,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1
		)
	`

	if _, err := t.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create process_dedupe table: %w", err)
	}
	return nil
}

// Record records a delivery and returns the seen count
func (t *Tracker) Record(ctx context.Context, key string, pipeline string, pipelineVersion int) (int, error) {
	// Upsert: increment seen_count if exists, insert if not
	query := `
		INSERT INTO process_dedupe (image_key, pipeline, pipeline_version, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		ON CONFLICT (image_key) DO UPDATE
		SET last_seen_at = NOW(),
		    seen_count = process_dedupe.seen_count + 1,
		    pipeline = EXCLUDED.pipeline,
		    pipeline_version = EXCLUDED.pipeline_version
		RETURNING seen_count
	`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, key, pipeline, pipelineVersion).Scan(&seenCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record dedupe: %w", err)
	}

	return seenCount, nil
}

// GetSeenCount retrieves the seen count for an image key
func (t *Tracker) GetSeenCount(ctx context.Context, key string) (int, error) {
	query := `SELECT seen_count FROM process_dedupe WHERE image_key = $1`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, key).Scan(&seenCount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get seen count: %w", err)
	}

	return seenCount, nil
}
