// Spotify Web API implementation of [Player] and [OAuthService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/songbot/internal/models"
	"github.com/desertthunder/songbot/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyScopes are the permissions requested during authorization.
var SpotifyScopes = []string{
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Type       string          `json:"type"`
	URI        string          `json:"uri"`
}

// SpotifyCurrentlyPlaying is the response of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	ProgressMS           int           `json:"progress_ms"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}

// SpotifyQueue is the response of GET /me/player/queue.
type SpotifyQueue struct {
	CurrentlyPlaying *SpotifyTrack  `json:"currently_playing"`
	Queue            []SpotifyTrack `json:"queue"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// ToTrack converts the API representation to a [models.Track].
func (t SpotifyTrack) ToTrack() models.Track {
	track := models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
		URI:        t.URI,
	}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	return track
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points API requests somewhere other than api.spotify.com.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithEndpoint overrides the OAuth authorize and token URLs.
func WithEndpoint(e oauth2.Endpoint) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint = e }
}

// WithRateLimit caps API requests per second. Non-positive values disable the limit.
func WithRateLimit(perSecond float64) SpotifyOption {
	return func(s *SpotifyService) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// SpotifyService implements [Player] and [OAuthService] for the Spotify Web API.
type SpotifyService struct {
	config  *oauth2.Config
	baseURL string
	limiter *rate.Limiter

	mu         sync.RWMutex
	token      *oauth2.Token
	httpClient *http.Client
}

// NewSpotifyService creates a Spotify service for the given app credentials and redirect URL.
func NewSpotifyService(clientID string, clientSecret shared.Secret, redirectURL string, opts ...SpotifyOption) (*SpotifyService, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client id", shared.ErrMissingCredentials)
	}
	if clientSecret.Value() == "" {
		return nil, fmt.Errorf("%w: missing client secret", shared.ErrMissingCredentials)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%w: redirect url", shared.ErrMissingArgument)
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret.Value(),
			RedirectURL:  redirectURL,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		baseURL: spotifyBaseURL,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a token and uses it for subsequent requests.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
	}

	s.SetToken(context.WithoutCancel(ctx), token)
	return token, nil
}

// SetToken authenticates the service with an existing token. ctx is used for refreshing it.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

// Token returns the token the service was authenticated with, or nil.
func (s *SpotifyService) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SpotifyService) client() (*http.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpClient == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.httpClient, nil
}

// request describes one API call. notFound is returned for a 404 answer.
type request struct {
	method   string
	endpoint string
	query    url.Values
	notFound error
}

// doRequest performs an authenticated, rate limited request and decodes a JSON body into result when one is present.
func (s *SpotifyService) doRequest(ctx context.Context, r request, result any) error {
	client, err := s.client()
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := s.baseURL + r.endpoint
	if len(r.query) > 0 {
		apiURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, r.method, r.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(r, resp.StatusCode, body)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

func statusError(r request, status int, body []byte) error {
	detail := fmt.Sprintf("%s %s: status %d", r.method, r.endpoint, status)
	var apiErr spotifyError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		detail += ": " + apiErr.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, detail)
	case status == http.StatusNotFound && r.notFound != nil:
		return fmt.Errorf("%w: %s", r.notFound, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited: %s", shared.ErrServiceUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, detail)
	}
}

// CurrentlyPlaying returns the playing track, or nil when playback is stopped or an episode or ad is playing.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	var playing SpotifyCurrentlyPlaying
	r := request{method: http.MethodGet, endpoint: "/me/player/currently-playing"}
	if err := s.doRequest(ctx, r, &playing); err != nil {
		return nil, err
	}

	if playing.Item == nil || (playing.CurrentlyPlayingType != "" && playing.CurrentlyPlayingType != "track") {
		return nil, nil
	}
	track := playing.Item.ToTrack()
	return &track, nil
}

// Queue returns the tracks queued after the current one.
func (s *SpotifyService) Queue(ctx context.Context) ([]models.Track, error) {
	var queue SpotifyQueue
	r := request{method: http.MethodGet, endpoint: "/me/player/queue"}
	if err := s.doRequest(ctx, r, &queue); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(queue.Queue))
	for _, t := range queue.Queue {
		if t.Type != "" && t.Type != "track" {
			continue
		}
		tracks = append(tracks, t.ToTrack())
	}
	return tracks, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, id string) (*models.Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var st SpotifyTrack
	r := request{
		method:   http.MethodGet,
		endpoint: "/tracks/" + url.PathEscape(id),
		notFound: shared.ErrTrackNotFound,
	}
	if err := s.doRequest(ctx, r, &st); err != nil {
		return nil, err
	}

	track := st.ToTrack()
	return &track, nil
}

// AddToQueue adds the track to the end of the active device's queue.
func (s *SpotifyService) AddToQueue(ctx context.Context, uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: track uri", shared.ErrMissingArgument)
	}

	r := request{
		method:   http.MethodPost,
		endpoint: "/me/player/queue",
		query:    url.Values{"uri": {uri}},
		notFound: fmt.Errorf("%w: no active device", shared.ErrServiceUnavailable),
	}
	return s.doRequest(ctx, r, nil)
}

var (
	_ Player       = (*SpotifyService)(nil)
	_ OAuthService = (*SpotifyService)(nil)
)
