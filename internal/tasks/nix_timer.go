package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/songbot/internal/messages"
)

// NixTimer publishes a reminder to chat every interval while it is running.
type NixTimer struct {
	bus      Publisher
	clock    clockwork.Clock
	interval time.Duration
	message  string
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNixTimer(bus Publisher, clock clockwork.Clock, interval time.Duration, message string, logger *log.Logger) *NixTimer {
	return &NixTimer{
		bus:      bus,
		clock:    clock,
		interval: interval,
		message:  message,
		logger:   logger,
	}
}

// Running reports whether the reminder is scheduled.
func (n *NixTimer) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancel != nil
}

// Start schedules the reminder. Starting a running timer does nothing.
func (n *NixTimer) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return
	}

	ticker := n.clock.NewTicker(n.interval)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	n.cancel, n.done = cancel, done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if err := n.bus.Publish(ctx, messages.NewSendTwitchChat(n.message)); err != nil {
					n.logger.Warn("failed to publish nix reminder", "error", err)
				}
			}
		}
	}()
	n.logger.Info("nix timer started", "interval", n.interval)
}

// Stop cancels the reminder and waits for it to wind down. Stopping a stopped timer does nothing.
func (n *NixTimer) Stop() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	n.logger.Info("nix timer stopped")
}

func (n *NixTimer) OnStartNixTimer(ctx context.Context, _ messages.StartNixTimer) error {
	n.Start(ctx)
	return nil
}

func (n *NixTimer) OnStopNixTimer(context.Context, messages.StopNixTimer) error {
	n.Stop()
	return nil
}

func (n *NixTimer) OnCurrentlyPlaying(context.Context, messages.CurrentlyPlaying) error { return nil }

func (n *NixTimer) OnCurrentlyPlayingRequest(context.Context, messages.CurrentlyPlayingRequest) error {
	return nil
}

func (n *NixTimer) OnKeyboardRaffleRequest(context.Context, messages.KeyboardRaffleRequest) error {
	return nil
}

func (n *NixTimer) OnSendTwitchChat(context.Context, messages.SendTwitchChat) error { return nil }
func (n *NixTimer) OnSongRequest(context.Context, messages.SongRequest) error       { return nil }

func (n *NixTimer) OnSongAddedToSpotifyQueue(context.Context, messages.SongAddedToSpotifyQueue) error {
	return nil
}

func (n *NixTimer) OnSongQueueRequest(context.Context, messages.SongQueueRequest) error { return nil }
func (n *NixTimer) OnSongQueue(context.Context, messages.SongQueue) error               { return nil }

func (n *NixTimer) OnRefundRewardRequest(context.Context, messages.RefundRewardRequest) error {
	return nil
}

var _ messages.Handler = (*NixTimer)(nil)
