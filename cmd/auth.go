package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songbot/internal/server"
	"github.com/desertthunder/songbot/internal/services"
	"github.com/desertthunder/songbot/internal/shared"
)

// tokenInfo is the token metadata printed by `auth --json`. The access token itself is never printed.
type tokenInfo struct {
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	RefreshToken bool      `json:"refresh_token"`
	Scope        any       `json:"scope,omitempty"`
}

// Auth performs the OAuth2 authorization flow for Spotify and reports when the token expires.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd, true)
	if err != nil {
		return err
	}

	spotify, err := r.authorize(ctx, config)
	if err != nil {
		return err
	}

	token := spotify.Token()
	if cmd.Bool("json") {
		return r.writeJSON(tokenInfo{
			TokenType:    token.Type(),
			Expiry:       token.Expiry,
			RefreshToken: token.RefreshToken != "",
			Scope:        token.Extra("scope"),
		}, true)
	}

	r.writePlainln("✓ Authorization successful")
	if token.Expiry.IsZero() {
		r.writePlain("Token does not expire\n")
	} else {
		r.writePlain("Token expires at %s (in %s)\n",
			token.Expiry.Format(time.RFC1123), token.Expiry.Sub(r.clock.Now()).Round(time.Second))
	}
	return nil
}

// authorize starts the redirect capture server, sends the user to Spotify and exchanges the captured code.
//
// The capture server is closed before authorize returns, whatever the outcome.
func (r *Runner) authorize(ctx context.Context, config *shared.Config) (*services.SpotifyService, error) {
	var spotify *services.SpotifyService

	err := server.Run(ctx, server.OptionsFromConfig(config), r.logger, func(ctx context.Context, s *server.CaptureServer) error {
		opts := append([]services.SpotifyOption{services.WithRateLimit(config.Bot.RequestsPerSecond)}, r.spotifyOpts...)
		svc, err := services.NewSpotifyService(config.Spotify.ClientID, config.Spotify.ClientSecret, s.RedirectURL(), opts...)
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}

		authURL := svc.AuthURL(s.CSRFToken())
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}

		waitCtx := ctx
		timeout := config.Server.AuthTimeout.Duration
		if timeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
			r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)
		} else {
			r.writePlain("→ Waiting for authorization...\n")
		}

		code, err := s.AwaitCode(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
			}
			return fmt.Errorf("authorization failed: %w", err)
		}

		if _, err := svc.Exchange(ctx, code); err != nil {
			return err
		}

		spotify = svc
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("authorized with Spotify")
	return spotify, nil
}
