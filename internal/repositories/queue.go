package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/songbot/internal/models"
	"github.com/desertthunder/songbot/internal/shared"
)

// QueueRepository persists [models.QueueItem] records in the song_queue table.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new QueueRepository with the given database connection
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Add inserts item, assigning an ID and request time when they are unset.
func (r *QueueRepository) Add(ctx context.Context, item *models.QueueItem) error {
	if item.ID == "" {
		item.ID = shared.GenerateID()
	}
	if item.RequestedAt.IsZero() {
		item.RequestedAt = time.Now()
	}
	item.RequestedAt = utc(item.RequestedAt)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := encodeArtists(item.Track.Artists)
	if err != nil {
		return err
	}

	var playedAt any
	if item.PlayedAt != nil {
		t := utc(*item.PlayedAt)
		item.PlayedAt = &t
		playedAt = t
	}

	query := `
		INSERT INTO song_queue (` + queueColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		item.ID,
		item.Track.ID,
		item.Track.URI,
		item.Track.Name,
		artists,
		item.Track.Album,
		item.Track.DurationMS,
		item.RequesterDisplayName,
		item.EventID,
		item.RewardID,
		item.RequestedAt,
		playedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue item: %w", err)
	}

	return nil
}

// Get retrieves a queue item by ID.
func (r *QueueRepository) Get(ctx context.Context, id string) (*models.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM song_queue WHERE id = ?`
	return scanQueueItem(r.db.QueryRowContext(ctx, query, id))
}

// ListPending returns unplayed items, oldest request first. A non-positive limit returns all of them.
func (r *QueueRepository) ListPending(ctx context.Context, limit int) ([]models.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM song_queue
		WHERE played_at IS NULL
		ORDER BY requested_at ASC, rowid ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending queue items: %w", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue items: %w", err)
	}

	return items, nil
}

// CountPending returns the number of unplayed items.
func (r *QueueRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM song_queue WHERE played_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue items: %w", err)
	}
	return n, nil
}

// FindPendingByTrackID returns the oldest unplayed request for the track.
func (r *QueueRepository) FindPendingByTrackID(ctx context.Context, trackID string) (*models.QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM song_queue
		WHERE track_id = ? AND played_at IS NULL
		ORDER BY requested_at ASC, rowid ASC
		LIMIT 1
	`
	return scanQueueItem(r.db.QueryRowContext(ctx, query, trackID))
}

// MarkPlayed stamps a pending item as played at the given time.
func (r *QueueRepository) MarkPlayed(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE song_queue SET played_at = ? WHERE id = ? AND played_at IS NULL`,
		utc(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item played: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrQueueItemNotFound, id)
	}

	return nil
}

// Clear deletes every pending item and returns how many were removed. Played history is kept.
func (r *QueueRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM song_queue WHERE played_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear queue: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
