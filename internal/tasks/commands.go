package tasks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/songbot/internal/messages"
	"github.com/desertthunder/songbot/internal/shared"
)

// ConsoleRewardID marks song requests typed into the console rather than redeemed on Twitch.
const ConsoleRewardID = "console"

// ParseChatCommand maps a chat line to the message it asks for. ok is false for lines that are not commands.
//
//	!song            CurrentlyPlayingRequest
//	!queue           SongQueueRequest
//	!raffle          KeyboardRaffleRequest
//	!sr <link>       SongRequest
//	!nix start|stop  StartNixTimer, StopNixTimer
func ParseChatCommand(user, text string) (msg messages.Message, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") {
		return nil, false
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "!song":
		return messages.NewCurrentlyPlayingRequest(user), true
	case "!queue":
		return messages.NewSongQueueRequest(), true
	case "!raffle":
		return messages.NewKeyboardRaffleRequest(user), true
	case "!sr":
		if len(args) != 1 {
			return nil, false
		}
		return messages.NewSongRequest(shared.GenerateID(), user, ConsoleRewardID, args[0]), true
	case "!nix":
		if len(args) != 1 {
			return nil, false
		}
		switch strings.ToLower(args[0]) {
		case "start":
			return messages.NewStartNixTimer(), true
		case "stop":
			return messages.NewStopNixTimer(), true
		}
	}
	return nil, false
}

// ConsoleChat reads "name: text" lines and publishes the commands in them.
type ConsoleChat struct {
	r           io.Reader
	bus         Publisher
	defaultUser string
	logger      *log.Logger
}

// NewConsoleChat creates a ConsoleChat. Lines without a "name:" prefix are attributed to defaultUser.
func NewConsoleChat(r io.Reader, bus Publisher, defaultUser string, logger *log.Logger) *ConsoleChat {
	return &ConsoleChat{r: r, bus: bus, defaultUser: defaultUser, logger: logger}
}

// SplitChatLine separates "name: text" into its parts.
func SplitChatLine(line, defaultUser string) (user, text string) {
	line = strings.TrimSpace(line)
	if name, rest, found := strings.Cut(line, ":"); found && !strings.HasPrefix(name, "!") && !strings.ContainsAny(name, " \t") && name != "" {
		return name, strings.TrimSpace(rest)
	}
	return defaultUser, line
}

// Run reads until EOF or until ctx is done.
func (c *ConsoleChat) Run(ctx context.Context) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errs; err != nil {
					return fmt.Errorf("read chat: %w", err)
				}
				return nil
			}
			c.handle(ctx, line)
		}
	}
}

func (c *ConsoleChat) handle(ctx context.Context, line string) {
	user, text := SplitChatLine(line, c.defaultUser)
	msg, ok := ParseChatCommand(user, text)
	if !ok {
		if text != "" {
			c.logger.Debug("ignoring chat line", "user", user, "text", text)
		}
		return
	}

	c.logger.Debug("chat command", "user", user, "message", msg)
	if err := c.bus.Publish(ctx, msg); err != nil {
		c.logger.Warn("failed to publish chat command", "kind", msg.Kind(), "error", err)
	}
}
