package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/songbot/internal/messages"
)

// maxQueueLines caps how many queue entries are listed in one chat line.
const maxQueueLines = 5

// ChatResponder writes the bot's side of the conversation to chat and executes refunds.
type ChatResponder struct {
	chat     ChatSender
	refunder RewardRefunder
	logger   *log.Logger

	mu        sync.Mutex
	current   *messages.CurrentlyPlaying
	entrants  []string
	entrantOK map[string]bool
}

func NewChatResponder(chat ChatSender, refunder RewardRefunder, logger *log.Logger) *ChatResponder {
	return &ChatResponder{
		chat:      chat,
		refunder:  refunder,
		logger:    logger,
		entrantOK: make(map[string]bool),
	}
}

// Entrants returns the keyboard raffle entrants in the order they entered.
func (c *ChatResponder) Entrants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entrants...)
}

// Current returns the last announced song.
func (c *ChatResponder) Current() (messages.CurrentlyPlaying, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return messages.CurrentlyPlaying{}, false
	}
	return *c.current, true
}

func (c *ChatResponder) say(ctx context.Context, format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	if err := c.chat.SendChat(ctx, line); err != nil {
		return fmt.Errorf("send chat: %w", err)
	}
	return nil
}

func nowPlayingLine(m messages.CurrentlyPlaying) string {
	line := describeSong(m.Song(), m.Artists())
	if m.RequesterDisplayName() != "" {
		line += fmt.Sprintf(" (requested by %s)", mention(m.RequesterDisplayName()))
	}
	return line
}

func (c *ChatResponder) OnCurrentlyPlaying(ctx context.Context, m messages.CurrentlyPlaying) error {
	c.mu.Lock()
	c.current = &m
	c.mu.Unlock()

	return c.say(ctx, "Now playing: %s", nowPlayingLine(m))
}

func (c *ChatResponder) OnCurrentlyPlayingRequest(ctx context.Context, m messages.CurrentlyPlayingRequest) error {
	current, ok := c.Current()
	if !ok {
		return c.say(ctx, "%s nothing is playing right now.", mention(m.RequesterDisplayName()))
	}
	return c.say(ctx, "%s now playing: %s", mention(m.RequesterDisplayName()), nowPlayingLine(current))
}

func (c *ChatResponder) OnKeyboardRaffleRequest(ctx context.Context, m messages.KeyboardRaffleRequest) error {
	name := strings.TrimPrefix(m.RequesterDisplayName(), "@")
	key := strings.ToLower(name)

	c.mu.Lock()
	already := c.entrantOK[key]
	if !already {
		c.entrantOK[key] = true
		c.entrants = append(c.entrants, name)
	}
	count := len(c.entrants)
	c.mu.Unlock()

	if already {
		return c.say(ctx, "%s you're already entered in the keyboard raffle.", mention(name))
	}
	c.logger.Info("raffle entry", "entrant", name, "entrants", count)
	return c.say(ctx, "%s you're entered in the keyboard raffle! (%d %s)", mention(name), count, plural(count, "entrant"))
}

func (c *ChatResponder) OnSendTwitchChat(ctx context.Context, m messages.SendTwitchChat) error {
	if strings.TrimSpace(m.Message()) == "" {
		return nil
	}
	return c.say(ctx, "%s", m.Message())
}

func (c *ChatResponder) OnSongAddedToSpotifyQueue(ctx context.Context, m messages.SongAddedToSpotifyQueue) error {
	track := m.Track()
	return c.say(ctx, "%s added %s to the queue.", mention(m.RequesterDisplayName()), describeSong(track.Name, track.Artists))
}

func (c *ChatResponder) OnSongQueue(ctx context.Context, m messages.SongQueue) error {
	queue := m.Queue()
	if len(queue) == 0 {
		return c.say(ctx, "The song queue is empty.")
	}

	parts := make([]string, 0, min(len(queue), maxQueueLines))
	for i, item := range queue {
		if i == maxQueueLines {
			break
		}
		parts = append(parts, fmt.Sprintf("%d. %s (%s)", i+1, describeSong(item.Track.Name, item.Track.Artists), mention(item.RequesterDisplayName)))
	}

	line := "Up next: " + strings.Join(parts, " | ")
	if extra := len(queue) - maxQueueLines; extra > 0 {
		line += fmt.Sprintf(" | +%d more", extra)
	}
	return c.say(ctx, "%s", line)
}

func (c *ChatResponder) OnRefundRewardRequest(ctx context.Context, m messages.RefundRewardRequest) error {
	if err := c.refunder.Refund(ctx, m.EventID(), m.RewardID()); err != nil {
		return fmt.Errorf("refund %s for %s: %w", m.EventID(), m.RequesterDisplayName(), err)
	}
	return nil
}

func (c *ChatResponder) OnSongRequest(context.Context, messages.SongRequest) error         { return nil }
func (c *ChatResponder) OnStartNixTimer(context.Context, messages.StartNixTimer) error     { return nil }
func (c *ChatResponder) OnStopNixTimer(context.Context, messages.StopNixTimer) error       { return nil }
func (c *ChatResponder) OnSongQueueRequest(context.Context, messages.SongQueueRequest) error { return nil }

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

var _ messages.Handler = (*ChatResponder)(nil)
