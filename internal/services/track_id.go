package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/songbot/internal/shared"
)

var trackIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// ParseTrackID extracts the Spotify track ID from a share link, a track URI, or a bare ID.
func ParseTrackID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty track link", shared.ErrInvalidInput)
	}

	var id string
	switch {
	case strings.HasPrefix(input, "spotify:"):
		parts := strings.Split(input, ":")
		if len(parts) != 3 || parts[1] != "track" {
			return "", fmt.Errorf("%w: not a track uri: %q", shared.ErrInvalidInput, input)
		}
		id = parts[2]
	case strings.Contains(input, "/"):
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return "", fmt.Errorf("%w: not a link: %q", shared.ErrInvalidInput, input)
		}
		if u.Hostname() != "open.spotify.com" {
			return "", fmt.Errorf("%w: not a spotify link: %q", shared.ErrInvalidInput, input)
		}

		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
			segments = segments[1:]
		}
		if len(segments) != 2 || segments[0] != "track" {
			return "", fmt.Errorf("%w: not a track link: %q", shared.ErrInvalidInput, input)
		}
		id = segments[1]
	default:
		id = input
	}

	if !trackIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: invalid track id %q", shared.ErrInvalidInput, id)
	}
	return id, nil
}

// TrackURI returns the spotify:track URI for id.
func TrackURI(id string) string {
	return "spotify:track:" + id
}
