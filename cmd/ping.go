package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songbot/internal/services"
)

// Ping checks that a redirect capture server answers on /ping.
func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("url")
	if baseURL == "" {
		config, err := r.loadConfig(cmd, false)
		if err != nil {
			return err
		}
		baseURL = "http://" + net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port))
	}

	client := services.NewCaptureClient(baseURL, r.httpClient)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", baseURL, err)
	}

	return r.writePlain("✓ Redirect server at %s is up\n", baseURL)
}
