package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RetentionManager ages conversation data out of the hot tables. Legal
// retention means old messages are archived long before they are purged.
type RetentionManager struct {
	db *pgxpool.Pool
}

func NewRetentionManager(db *pgxpool.Pool) *RetentionManager {
	return &RetentionManager{db: db}
}

// ArchiveMessagesOlderThan moves aged messages into the archive table
// transactionally and returns the number of rows moved.
func (r *RetentionManager) ArchiveMessagesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback(ctx)

	copied, err := tx.Exec(ctx, `
		INSERT INTO messages_archive (id, client_id, direction, channel, body,
			sentiment, action, confidence, concern_level, flagged,
			delay_seconds, status, created_at)
		SELECT id, client_id, direction, channel, body,
			sentiment, action, confidence, concern_level, flagged,
			delay_seconds, status, created_at
		FROM messages WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("copy to archive: %w", err)
	}

	deleted, err := tx.Exec(ctx, "DELETE FROM messages WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete archived messages: %w", err)
	}
	if copied.RowsAffected() != deleted.RowsAffected() {
		return 0, fmt.Errorf("archive mismatch: copied %d, deleted %d",
			copied.RowsAffected(), deleted.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit archive: %w", err)
	}
	return deleted.RowsAffected(), nil
}

// PurgeArchiveOlderThan permanently deletes archive rows past the retention
// horizon and returns the number of rows removed.
func (r *RetentionManager) PurgeArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM messages_archive WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge archive: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ArchivedCount reports the archive size for the admin stats endpoint.
func (r *RetentionManager) ArchivedCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages_archive").Scan(&n)
	return n, err
}
