// Package repositories implements SQLite persistence for the song request queue.
//
// [QueueRepository] stores every song added to the Spotify queue through a channel point redemption, so the bot can
// credit the requester when the song starts playing and list what is still pending.
//
// A queue item is pending until [QueueRepository.MarkPlayed] stamps its played_at column. Pending items are ordered by
// request time, oldest first.
package repositories
