package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songbot/internal/models"
	"github.com/desertthunder/songbot/internal/shared"
)

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

const queueColumns = `id, track_id, track_uri, track_name, artists, album, duration_ms, requester, event_id, reward_id, requested_at, played_at`

// scanQueueItem scans one song_queue row into a [models.QueueItem].
func scanQueueItem(s scanner) (*models.QueueItem, error) {
	var (
		item     models.QueueItem
		artists  string
		playedAt sql.NullTime
	)

	err := s.Scan(
		&item.ID,
		&item.Track.ID,
		&item.Track.URI,
		&item.Track.Name,
		&artists,
		&item.Track.Album,
		&item.Track.DurationMS,
		&item.RequesterDisplayName,
		&item.EventID,
		&item.RewardID,
		&item.RequestedAt,
		&playedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrQueueItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue item: %w", err)
	}

	if item.Track.Artists, err = decodeArtists(artists); err != nil {
		return nil, err
	}
	if playedAt.Valid {
		t := playedAt.Time
		item.PlayedAt = &t
	}
	return &item, nil
}

func encodeArtists(artists []string) (string, error) {
	if len(artists) == 0 {
		return "", nil
	}
	data, err := json.Marshal(artists)
	if err != nil {
		return "", fmt.Errorf("failed to encode artists: %w", err)
	}
	return string(data), nil
}

func decodeArtists(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var artists []string
	if err := json.Unmarshal([]byte(raw), &artists); err != nil {
		return nil, fmt.Errorf("failed to decode artists: %w", err)
	}
	if len(artists) == 0 {
		return nil, nil
	}
	return artists, nil
}

// utc drops the monotonic reading and location so stored timestamps compare cleanly.
func utc(t time.Time) time.Time {
	return t.UTC().Round(0)
}
