package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/songbot/internal/messages"
	"github.com/desertthunder/songbot/internal/services"
	"github.com/desertthunder/songbot/internal/shared"
)

// NowPlayingPoller watches the player and publishes CurrentlyPlaying whenever the track changes.
type NowPlayingPoller struct {
	player   services.Player
	store    QueueStore
	bus      Publisher
	clock    clockwork.Clock
	interval time.Duration
	logger   *log.Logger

	lastID string
}

func NewNowPlayingPoller(player services.Player, store QueueStore, bus Publisher, clock clockwork.Clock, interval time.Duration, logger *log.Logger) *NowPlayingPoller {
	return &NowPlayingPoller{
		player:   player,
		store:    store,
		bus:      bus,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Run polls immediately and then every interval until ctx is done.
func (p *NowPlayingPoller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			p.poll(ctx)
		}
	}
}

func (p *NowPlayingPoller) poll(ctx context.Context) {
	track, err := p.player.CurrentlyPlaying(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			p.logger.Error("spotify rejected the token", "error", err)
		} else if ctx.Err() == nil {
			p.logger.Warn("failed to fetch currently playing", "error", err)
		}
		return
	}

	if track == nil {
		p.lastID = ""
		return
	}
	if track.ID == p.lastID {
		return
	}
	p.lastID = track.ID

	var requester string
	item, err := p.store.FindPendingByTrackID(ctx, track.ID)
	switch {
	case err == nil:
		requester = item.RequesterDisplayName
		if err := p.store.MarkPlayed(ctx, item.ID, p.clock.Now()); err != nil {
			p.logger.Warn("failed to mark request played", "id", item.ID, "error", err)
		}
	case !errors.Is(err, shared.ErrQueueItemNotFound):
		p.logger.Warn("failed to look up request", "track_id", track.ID, "error", err)
	}

	p.logger.Debug("track changed", "track", track, "requester", requester)
	if err := p.bus.Publish(ctx, messages.NewCurrentlyPlaying(track.Name, track.Artists, requester)); err != nil {
		p.logger.Warn("failed to publish currently playing", "error", err)
	}
}
