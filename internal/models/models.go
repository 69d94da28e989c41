package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms"`
	URI        string   `json:"uri"`
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	t.Artists = slices.Clone(t.Artists)
	return t
}

// ArtistNames joins the artists for display, e.g. "Daft Punk, Pharrell Williams".
func (t Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// String implements [fmt.Stringer].
func (t Track) String() string {
	if len(t.Artists) == 0 {
		return fmt.Sprintf("%q (%s)", t.Name, t.ID)
	}
	return fmt.Sprintf("%q by %s (%s)", t.Name, t.ArtistNames(), t.ID)
}

// QueueItem represents a song request in the song queue.
type QueueItem struct {
	ID                   string     `json:"id"`
	Track                Track      `json:"track"`
	RequesterDisplayName string     `json:"requester_display_name"`
	EventID              string     `json:"event_id,omitempty"`
	RewardID             string     `json:"reward_id,omitempty"`
	RequestedAt          time.Time  `json:"requested_at"`
	PlayedAt             *time.Time `json:"played_at,omitempty"`
}

// Clone returns a deep copy of the item.
func (q QueueItem) Clone() QueueItem {
	q.Track = q.Track.Clone()
	if q.PlayedAt != nil {
		playedAt := *q.PlayedAt
		q.PlayedAt = &playedAt
	}
	return q
}

// Pending reports whether the requested song has not started playing yet.
func (q QueueItem) Pending() bool {
	return q.PlayedAt == nil
}

// Validate checks the fields required to persist the item.
func (q QueueItem) Validate() error {
	if q.Track.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if q.Track.URI == "" {
		return fmt.Errorf("track uri is required")
	}
	if q.RequesterDisplayName == "" {
		return fmt.Errorf("requester display name is required")
	}
	return nil
}
