package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songbot/internal/pubsub"
	"github.com/desertthunder/songbot/internal/repositories"
	"github.com/desertthunder/songbot/internal/services"
	"github.com/desertthunder/songbot/internal/shared"
	"github.com/desertthunder/songbot/internal/tasks"
	"github.com/desertthunder/songbot/internal/ui"
)

// monitorLogPath receives log lines while the monitor owns the terminal.
const monitorLogPath = "./tmp/songbot-monitor.log"

type botOptions struct {
	monitor bool
	user    string
}

// Bot authorizes with Spotify, opens the song queue and runs every bot component until stdin ends or ctx is done.
func (r *Runner) Bot(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, true)
	if err != nil {
		return err
	}

	opts := botOptions{monitor: cmd.Bool("tui"), user: cmd.String("user")}
	if opts.monitor {
		fileLogger, f, err := shared.NewFileLogger(monitorLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer f.Close()
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	spotify, err := r.authorize(ctx, config)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return r.serveBot(ctx, config, spotify, repositories.NewQueueRepository(db), opts)
}

// serveBot wires the bus and its consumers and blocks on the chat source.
//
// Shutdown runs in reverse: the poller stops first, then the nix timer, and finally the bus drains and closes.
func (r *Runner) serveBot(ctx context.Context, config *shared.Config, player services.Player, store tasks.QueueStore, opts botOptions) error {
	bus := pubsub.New(shared.WithLogger(r.logger, "component", "bus"))
	defer bus.Close()

	nix := tasks.NewNixTimer(bus, r.clock, config.Bot.NixInterval.Duration, config.Bot.NixMessage,
		shared.WithLogger(r.logger, "component", "nix-timer"))
	defer nix.Stop()

	// the monitor shows chat lines in its event log
	chatOut := r.output
	if opts.monitor {
		chatOut = io.Discard
	}
	chat := tasks.NewLogChatSender(chatOut, r.logger)
	bus.Subscribe(ctx, "queue-manager", tasks.NewQueueManager(player, store, bus, r.clock, config.Bot.QueueLimit,
		shared.WithLogger(r.logger, "component", "queue-manager")))
	bus.Subscribe(ctx, "chat-responder", tasks.NewChatResponder(chat, tasks.NewLogRefunder(r.logger),
		shared.WithLogger(r.logger, "component", "chat-responder")))
	bus.Subscribe(ctx, "nix-timer", nix)

	poller := tasks.NewNowPlayingPoller(player, store, bus, r.clock, config.Bot.PollInterval.Duration,
		shared.WithLogger(r.logger, "component", "now-playing"))

	pollCtx, stopPolling := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Run(pollCtx); err != nil {
			r.logger.Error("now playing poller stopped", "error", err)
		}
	}()
	defer func() {
		stopPolling()
		wg.Wait()
	}()

	r.logger.Info("bot running", "subscribers", bus.Subscribers(), "queue_limit", config.Bot.QueueLimit)

	if opts.monitor {
		return r.runMonitor(ctx, bus)
	}

	r.writePlainHeader("songbot")
	r.writePlain("Type chat lines as \"name: !command\" (!sr <link>, !song, !queue, !raffle, !nix start|stop)\n")
	return tasks.NewConsoleChat(r.input, bus, opts.user, shared.WithLogger(r.logger, "component", "console")).Run(ctx)
}

// runMonitor shows the live monitor until the user quits.
func (r *Runner) runMonitor(ctx context.Context, bus *pubsub.Bus) error {
	model := ui.NewModel(ctx, bus)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithInput(r.input), tea.WithOutput(r.output))

	unsubscribe := bus.Subscribe(ctx, "monitor", ui.NewFeed(p, r.clock))
	defer unsubscribe()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
