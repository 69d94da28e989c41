package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// LogChatSender prints chat lines to a writer instead of posting them to Twitch.
type LogChatSender struct {
	mu     sync.Mutex
	w      io.Writer
	logger *log.Logger
}

func NewLogChatSender(w io.Writer, logger *log.Logger) *LogChatSender {
	return &LogChatSender{w: w, logger: logger}
}

func (s *LogChatSender) SendChat(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("chat", "message", message)
	if _, err := fmt.Fprintf(s.w, "[chat] %s\n", message); err != nil {
		return fmt.Errorf("write chat line: %w", err)
	}
	return nil
}

// LogRefunder records refunds in the log instead of calling the Twitch API.
type LogRefunder struct {
	logger *log.Logger
}

func NewLogRefunder(logger *log.Logger) *LogRefunder {
	return &LogRefunder{logger: logger}
}

func (r *LogRefunder) Refund(ctx context.Context, eventID, rewardID string) error {
	r.logger.Info("refunding redemption", "event_id", eventID, "reward_id", rewardID)
	return nil
}

var (
	_ ChatSender     = (*LogChatSender)(nil)
	_ RewardRefunder = (*LogRefunder)(nil)
)
