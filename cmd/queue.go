package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songbot/internal/formatter"
	"github.com/desertthunder/songbot/internal/repositories"
	"github.com/desertthunder/songbot/internal/shared"
)

// QueueList prints pending song requests, oldest first.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}

	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", shared.ErrInvalidArgument)
	}

	repo, closeDB, err := r.openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	items, err := repo.ListPending(ctx, int(limit))
	if err != nil {
		return err
	}

	r.logger.Debug("listing song queue", "count", len(items), "format", format)
	return formatter.Write(r.output, format, items)
}

// QueueClear removes every pending song request. Played history is kept.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := repo.Clear(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("cleared song queue", "removed", n)
	return r.writePlain("✓ Removed %d pending request(s)\n", n)
}

func (r *Runner) openQueue(cmd *cli.Command) (*repositories.QueueRepository, func(), error) {
	config, err := r.loadConfig(cmd, false)
	if err != nil {
		return nil, nil, err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, nil, err
	}

	return repositories.NewQueueRepository(db), func() { db.Close() }, nil
}
