// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songbot/internal/formatter"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// authCommand runs the OAuth flow on its own
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify through the local redirect server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output token metadata as JSON",
			},
		},
		Action: r.Auth,
	}
}

// botCommand authorizes and runs the bot until interrupted
func botCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run the song request bot, reading chat lines (name: text) from stdin",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show the live monitor instead of reading chat from stdin",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Display name for console chat lines without a name prefix",
				Value: "streamer",
			},
		},
		Action: r.Bot,
	}
}

// queueCommand inspects the persisted song queue
func queueCommand(r *Runner) *cli.Command {
	formats := make([]string, 0, len(formatter.Formats()))
	for _, f := range formatter.Formats() {
		formats = append(formats, string(f))
	}

	return &cli.Command{
		Name:  "queue",
		Usage: "Song queue operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pending song requests",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to return (0 for all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   fmt.Sprintf("Output format (%s)", strings.Join(formats, ", ")),
						Value:   string(formatter.FormatText),
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Shorthand for --format json",
					},
				},
				Action: r.QueueList,
			},
			{
				Name:   "clear",
				Usage:  "Remove every pending song request",
				Flags:  []cli.Flag{configFlag()},
				Action: r.QueueClear,
			},
		},
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recently applied migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// pingCommand probes a running redirect server
func pingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check whether a redirect server is listening",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "url",
				Usage: "Base URL of the redirect server (defaults to the configured host and port)",
			},
		},
		Action: r.Ping,
	}
}
