package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/songbot/internal/messages"
	"github.com/desertthunder/songbot/internal/models"
	"github.com/desertthunder/songbot/internal/services"
	"github.com/desertthunder/songbot/internal/shared"
)

// Refund reasons sent back to the requester.
const (
	reasonBadLink     = "that doesn't look like a Spotify track link"
	reasonQueueFull   = "the song queue is full"
	reasonNotFound    = "I couldn't find that track on Spotify"
	reasonUnavailable = "Spotify isn't reachable right now"
	reasonNoDevice    = "nothing is playing on Spotify right now"
)

// QueueManager turns song requests into Spotify queue entries.
type QueueManager struct {
	player services.Player
	store  QueueStore
	bus    Publisher
	clock  clockwork.Clock
	limit  int
	logger *log.Logger
}

// NewQueueManager creates a QueueManager. A positive limit caps the number of pending requests.
func NewQueueManager(player services.Player, store QueueStore, bus Publisher, clock clockwork.Clock, limit int, logger *log.Logger) *QueueManager {
	return &QueueManager{
		player: player,
		store:  store,
		bus:    bus,
		clock:  clock,
		limit:  limit,
		logger: logger,
	}
}

func (q *QueueManager) OnSongRequest(ctx context.Context, m messages.SongRequest) error {
	logger := q.logger.With("requester", m.RequesterDisplayName(), "event_id", m.EventID())

	id, err := services.ParseTrackID(m.URL())
	if err != nil {
		logger.Info("rejecting song request", "url", m.URL(), "error", err)
		return q.refund(ctx, m, reasonBadLink)
	}

	if q.limit > 0 {
		pending, err := q.store.CountPending(ctx)
		if err != nil {
			logger.Warn("failed to count pending requests", "error", err)
		} else if pending >= q.limit {
			logger.Info("rejecting song request", "reason", "queue full", "pending", pending)
			return q.refund(ctx, m, reasonQueueFull)
		}
	}

	track, err := q.player.Track(ctx, id)
	if err != nil {
		logger.Warn("track lookup failed", "track_id", id, "error", err)
		if errors.Is(err, shared.ErrTrackNotFound) {
			return q.refund(ctx, m, reasonNotFound)
		}
		return q.refund(ctx, m, reasonUnavailable)
	}

	if err := q.player.AddToQueue(ctx, track.URI); err != nil {
		logger.Warn("failed to add track to spotify queue", "track", track, "error", err)
		if errors.Is(err, shared.ErrServiceUnavailable) {
			return q.refund(ctx, m, reasonNoDevice)
		}
		return q.refund(ctx, m, reasonUnavailable)
	}

	item := &models.QueueItem{
		Track:                track.Clone(),
		RequesterDisplayName: m.RequesterDisplayName(),
		EventID:              m.EventID(),
		RewardID:             m.RewardID(),
		RequestedAt:          q.clock.Now(),
	}
	if err := q.store.Add(ctx, item); err != nil {
		// The song is already on the Spotify queue, so the viewer keeps it.
		logger.Error("failed to record queue item", "track", track, "error", err)
	}

	logger.Info("song queued", "track", track)
	return q.bus.Publish(ctx, messages.NewSongAddedToSpotifyQueue(*track, m.RequesterDisplayName()))
}

func (q *QueueManager) refund(ctx context.Context, m messages.SongRequest, reason string) error {
	refund := messages.NewRefundRewardRequest(m.EventID(), m.RequesterDisplayName(), m.RewardID())
	if err := q.bus.Publish(ctx, refund); err != nil {
		return fmt.Errorf("publish refund: %w", err)
	}

	line := fmt.Sprintf("%s sorry, %s. Your points have been refunded.", mention(m.RequesterDisplayName()), reason)
	return q.bus.Publish(ctx, messages.NewSendTwitchChat(line))
}

func (q *QueueManager) OnSongQueueRequest(ctx context.Context, _ messages.SongQueueRequest) error {
	items, err := q.store.ListPending(ctx, q.limit)
	if err != nil {
		return fmt.Errorf("list pending requests: %w", err)
	}
	return q.bus.Publish(ctx, messages.NewSongQueue(items))
}

func (q *QueueManager) OnCurrentlyPlaying(context.Context, messages.CurrentlyPlaying) error { return nil }

func (q *QueueManager) OnCurrentlyPlayingRequest(context.Context, messages.CurrentlyPlayingRequest) error {
	return nil
}

func (q *QueueManager) OnKeyboardRaffleRequest(context.Context, messages.KeyboardRaffleRequest) error {
	return nil
}

func (q *QueueManager) OnSendTwitchChat(context.Context, messages.SendTwitchChat) error { return nil }
func (q *QueueManager) OnStartNixTimer(context.Context, messages.StartNixTimer) error   { return nil }
func (q *QueueManager) OnStopNixTimer(context.Context, messages.StopNixTimer) error     { return nil }

func (q *QueueManager) OnSongAddedToSpotifyQueue(context.Context, messages.SongAddedToSpotifyQueue) error {
	return nil
}

func (q *QueueManager) OnSongQueue(context.Context, messages.SongQueue) error { return nil }

func (q *QueueManager) OnRefundRewardRequest(context.Context, messages.RefundRewardRequest) error {
	return nil
}

var _ messages.Handler = (*QueueManager)(nil)
