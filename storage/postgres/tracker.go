package postgres

import (
	"context"
	"fmt"

	"github.com/poiesic/legisearch/core"
)

// IsCompleted reports whether the file at path was already ingested.
func (b *Backend) IsCompleted(ctx context.Context, path string) (bool, error) {
	stmt := fmt.Sprintf(
		"SELECT count(*) FROM %s WHERE absolute_path = $1 AND status = $2",
		b.qualified("process_tracker"),
	)
	var n int64
	if err := b.pool.QueryRow(ctx, stmt, path, core.StatusCompleted).Scan(&n); err != nil {
		return false, fmt.Errorf("checking tracker for %s: %w", path, err)
	}
	return n > 0, nil
}

// UpsertStatus records the current processing status of a file, keyed by
// its absolute path. Rows are never deleted; re-runs overwrite status in
// place.
func (b *Backend) UpsertStatus(ctx context.Context, path string, category core.FileCategory, region, session string, status core.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidFileCategory, category)
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (absolute_path, file_type, region, session, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (absolute_path) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = now()`,
		b.qualified("process_tracker"),
	)
	if _, err := b.pool.Exec(ctx, stmt, path, category, region, session, status); err != nil {
		return fmt.Errorf("upserting tracker status for %s: %w", path, err)
	}
	return nil
}
