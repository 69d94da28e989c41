package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/songbot/internal/messages"
)

// Sender delivers messages to a running program. Implemented by [tea.Program].
type Sender interface {
	Send(msg tea.Msg)
}

// Feed forwards bus traffic to the monitor.
type Feed struct {
	sender Sender
	clock  clockwork.Clock
}

func NewFeed(sender Sender, clock clockwork.Clock) *Feed {
	return &Feed{sender: sender, clock: clock}
}

func (f *Feed) forward(m messages.Message) error {
	f.sender.Send(busEventMsg(m, f.clock.Now()))
	return nil
}

func (f *Feed) OnCurrentlyPlaying(_ context.Context, m messages.CurrentlyPlaying) error {
	return f.forward(m)
}

func (f *Feed) OnCurrentlyPlayingRequest(_ context.Context, m messages.CurrentlyPlayingRequest) error {
	return f.forward(m)
}

func (f *Feed) OnKeyboardRaffleRequest(_ context.Context, m messages.KeyboardRaffleRequest) error {
	return f.forward(m)
}

func (f *Feed) OnSendTwitchChat(_ context.Context, m messages.SendTwitchChat) error {
	return f.forward(m)
}

func (f *Feed) OnSongRequest(_ context.Context, m messages.SongRequest) error {
	return f.forward(m)
}

func (f *Feed) OnStartNixTimer(_ context.Context, m messages.StartNixTimer) error {
	return f.forward(m)
}

func (f *Feed) OnStopNixTimer(_ context.Context, m messages.StopNixTimer) error {
	return f.forward(m)
}

func (f *Feed) OnSongAddedToSpotifyQueue(_ context.Context, m messages.SongAddedToSpotifyQueue) error {
	return f.forward(m)
}

func (f *Feed) OnSongQueueRequest(_ context.Context, m messages.SongQueueRequest) error {
	return f.forward(m)
}

func (f *Feed) OnSongQueue(_ context.Context, m messages.SongQueue) error {
	return f.forward(m)
}

func (f *Feed) OnRefundRewardRequest(_ context.Context, m messages.RefundRewardRequest) error {
	return f.forward(m)
}

var _ messages.Handler = (*Feed)(nil)
