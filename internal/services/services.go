package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/desertthunder/songbot/internal/models"
)

// Player is the slice of a streaming account the bot drives: what is playing, what is queued, and adding to the queue.
type Player interface {
	// CurrentlyPlaying returns the playing track, or nil when nothing (or a non-track item) is playing.
	CurrentlyPlaying(ctx context.Context) (*models.Track, error)

	// Queue returns the upcoming tracks, next first.
	Queue(ctx context.Context) ([]models.Track, error)

	// Track looks a track up by ID.
	Track(ctx context.Context, id string) (*models.Track, error)

	// AddToQueue appends the track with the given URI to the playback queue.
	AddToQueue(ctx context.Context, uri string) error
}

// OAuthService is implemented by providers using the authorization code flow.
type OAuthService interface {
	// AuthURL returns the consent page URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token and authenticates the service with it.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}
