package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/songbot/internal/messages"
	"github.com/desertthunder/songbot/internal/models"
)

// Publisher puts messages on the bus.
type Publisher interface {
	Publish(ctx context.Context, msg messages.Message) error
}

// QueueStore persists song requests. Implemented by repositories.QueueRepository.
type QueueStore interface {
	Add(ctx context.Context, item *models.QueueItem) error
	ListPending(ctx context.Context, limit int) ([]models.QueueItem, error)
	CountPending(ctx context.Context) (int, error)
	FindPendingByTrackID(ctx context.Context, trackID string) (*models.QueueItem, error)
	MarkPlayed(ctx context.Context, id string, at time.Time) error
}

// ChatSender writes a line to the stream chat.
type ChatSender interface {
	SendChat(ctx context.Context, message string) error
}

// RewardRefunder cancels a channel point redemption, returning the points to the viewer.
type RewardRefunder interface {
	Refund(ctx context.Context, eventID, rewardID string) error
}

// describeSong renders "Song by A, B", or just the song name when there are no artists.
func describeSong(song string, artists []string) string {
	if len(artists) == 0 {
		return song
	}
	return fmt.Sprintf("%s by %s", song, strings.Join(artists, ", "))
}

func mention(name string) string {
	return "@" + strings.TrimPrefix(name, "@")
}
