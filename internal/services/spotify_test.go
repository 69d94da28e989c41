package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/songbot/internal/shared"
)

const testTrackJSON = `{
	"id": "4uLU6hMCjMI75M1A2tKUQC",
	"name": "Never Gonna Give You Up",
	"type": "track",
	"uri": "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
	"duration_ms": 213573,
	"album": {"id": "alb", "name": "Whenever You Need Somebody"},
	"artists": [{"id": "art", "name": "Rick Astley"}]
}`

func newTestService(t *testing.T, handler http.HandlerFunc, opts ...SpotifyOption) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]SpotifyOption{WithBaseURL(server.URL)}, opts...)
	srv, err := NewSpotifyService("client", shared.Secret("secret"), "http://127.0.0.1:3939/redirect", opts...)
	require.NoError(t, err)
	srv.SetToken(context.Background(), &oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
	return srv
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		srv, err := NewSpotifyService("id", shared.Secret("secret"), "http://localhost:3939/redirect")
		require.NoError(t, err)
		assert.Equal(t, "Spotify", srv.Name())
		assert.Equal(t, spotifyBaseURL, srv.baseURL)
		assert.Nil(t, srv.Token())
	})

	t.Run("missing client id", func(t *testing.T) {
		_, err := NewSpotifyService("", shared.Secret("secret"), "http://localhost:3939/redirect")
		assert.ErrorIs(t, err, shared.ErrMissingCredentials)
	})

	t.Run("missing client secret", func(t *testing.T) {
		_, err := NewSpotifyService("id", "", "http://localhost:3939/redirect")
		assert.ErrorIs(t, err, shared.ErrMissingCredentials)
	})

	t.Run("missing redirect url", func(t *testing.T) {
		_, err := NewSpotifyService("id", shared.Secret("secret"), "")
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})

	t.Run("base url trailing slash", func(t *testing.T) {
		srv, err := NewSpotifyService("id", shared.Secret("secret"), "http://x/redirect", WithBaseURL("http://api.test/v1/"))
		require.NoError(t, err)
		assert.Equal(t, "http://api.test/v1", srv.baseURL)
	})
}

func TestAuthURL(t *testing.T) {
	srv, err := NewSpotifyService("my-client", shared.Secret("secret"), "http://127.0.0.1:3939/redirect")
	require.NoError(t, err)

	raw := srv.AuthURL("csrf-token")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "accounts.spotify.com", u.Host)
	q := u.Query()
	assert.Equal(t, "my-client", q.Get("client_id"))
	assert.Equal(t, "csrf-token", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://127.0.0.1:3939/redirect", q.Get("redirect_uri"))
	for _, scope := range SpotifyScopes {
		assert.Contains(t, q.Get("scope"), scope)
	}
}

func TestExchange(t *testing.T) {
	newTokenServer := func(t *testing.T, status int) *httptest.Server {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
			assert.Equal(t, "the-code", r.Form.Get("code"))

			if status != http.StatusOK {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`))
		}))
		t.Cleanup(server.Close)
		return server
	}

	t.Run("success authenticates the service", func(t *testing.T) {
		tokens := newTokenServer(t, http.StatusOK)
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}))
		t.Cleanup(api.Close)

		srv, err := NewSpotifyService("id", shared.Secret("secret"), "http://127.0.0.1:3939/redirect",
			WithEndpoint(oauth2.Endpoint{AuthURL: tokens.URL + "/authorize", TokenURL: tokens.URL + "/token"}),
			WithBaseURL(api.URL),
		)
		require.NoError(t, err)

		token, err := srv.Exchange(context.Background(), "the-code")
		require.NoError(t, err)
		assert.Equal(t, "fresh", token.AccessToken)
		assert.Equal(t, "refresh", token.RefreshToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), token.Expiry, time.Minute)
		assert.Same(t, token, srv.Token())

		playing, err := srv.CurrentlyPlaying(context.Background())
		require.NoError(t, err)
		assert.Nil(t, playing)
	})

	t.Run("rejected code", func(t *testing.T) {
		tokens := newTokenServer(t, http.StatusBadRequest)
		srv, err := NewSpotifyService("id", shared.Secret("secret"), "http://127.0.0.1:3939/redirect",
			WithEndpoint(oauth2.Endpoint{TokenURL: tokens.URL + "/token"}),
		)
		require.NoError(t, err)

		_, err = srv.Exchange(context.Background(), "the-code")
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.Nil(t, srv.Token())
	})

	t.Run("empty code", func(t *testing.T) {
		srv, err := NewSpotifyService("id", shared.Secret("secret"), "http://127.0.0.1:3939/redirect")
		require.NoError(t, err)
		_, err = srv.Exchange(context.Background(), "")
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})
}

func TestCurrentlyPlaying(t *testing.T) {
	t.Run("track playing", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			requireBearer(t, r)
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/me/player/currently-playing", r.URL.Path)
			_, _ = w.Write([]byte(`{"is_playing":true,"currently_playing_type":"track","item":` + testTrackJSON + `}`))
		})

		track, err := srv.CurrentlyPlaying(context.Background())
		require.NoError(t, err)
		require.NotNil(t, track)
		assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", track.ID)
		assert.Equal(t, "Never Gonna Give You Up", track.Name)
		assert.Equal(t, []string{"Rick Astley"}, track.Artists)
		assert.Equal(t, "Whenever You Need Somebody", track.Album)
		assert.Equal(t, 213573, track.DurationMS)
		assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", track.URI)
	})

	t.Run("nothing playing", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		track, err := srv.CurrentlyPlaying(context.Background())
		require.NoError(t, err)
		assert.Nil(t, track)
	})

	t.Run("episode playing", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"is_playing":true,"currently_playing_type":"episode","item":{"id":"ep","type":"episode"}}`))
		})
		track, err := srv.CurrentlyPlaying(context.Background())
		require.NoError(t, err)
		assert.Nil(t, track)
	})

	t.Run("expired token", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		})
		_, err := srv.CurrentlyPlaying(context.Background())
		assert.ErrorIs(t, err, shared.ErrTokenExpired)
		assert.Contains(t, err.Error(), "The access token expired")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		})
		_, err := srv.CurrentlyPlaying(context.Background())
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("not authenticated", func(t *testing.T) {
		srv, err := NewSpotifyService("id", shared.Secret("secret"), "http://x/redirect")
		require.NoError(t, err)
		_, err = srv.CurrentlyPlaying(context.Background())
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})
}

func TestQueue(t *testing.T) {
	t.Run("skips episodes", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/me/player/queue", r.URL.Path)
			_, _ = w.Write([]byte(`{"currently_playing":` + testTrackJSON + `,"queue":[` + testTrackJSON + `,{"id":"ep","type":"episode"}]}`))
		})

		tracks, err := srv.Queue(context.Background())
		require.NoError(t, err)
		require.Len(t, tracks, 1)
		assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", tracks[0].ID)
	})

	t.Run("server error", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := srv.Queue(context.Background())
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Contains(t, err.Error(), "status 502")
	})
}

func TestTrack(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			requireBearer(t, r)
			assert.Equal(t, "/tracks/4uLU6hMCjMI75M1A2tKUQC", r.URL.Path)
			_, _ = w.Write([]byte(testTrackJSON))
		})

		track, err := srv.Track(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
		require.NoError(t, err)
		assert.Equal(t, "Never Gonna Give You Up", track.Name)
	})

	t.Run("not found", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := srv.Track(context.Background(), "0000000000000000000000")
		assert.ErrorIs(t, err, shared.ErrTrackNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		_, err := srv.Track(context.Background(), "")
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})
}

func TestAddToQueue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got string
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/me/player/queue", r.URL.Path)
			got = r.URL.Query().Get("uri")
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, srv.AddToQueue(context.Background(), "spotify:track:4uLU6hMCjMI75M1A2tKUQC"))
		assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", got)
	})

	t.Run("no active device", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Player command failed: No active device found"}}`))
		})
		err := srv.AddToQueue(context.Background(), "spotify:track:x")
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
		assert.Contains(t, err.Error(), "No active device found")
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		err := srv.AddToQueue(context.Background(), "spotify:track:x")
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})

	t.Run("empty uri", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		assert.ErrorIs(t, srv.AddToQueue(context.Background(), ""), shared.ErrMissingArgument)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("waits for a token", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}, WithRateLimit(20))

		start := time.Now()
		for range 3 {
			_, err := srv.CurrentlyPlaying(context.Background())
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}, WithRateLimit(0.1))

		_, err := srv.CurrentlyPlaying(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = srv.CurrentlyPlaying(ctx)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "rate limiter"))
	})

	t.Run("non-positive disables the limit", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {}, WithRateLimit(-1))
		assert.Equal(t, rate.Inf, srv.limiter.Limit())
	})
}

func TestSpotifyTrackToTrack(t *testing.T) {
	var st SpotifyTrack
	require.NoError(t, json.Unmarshal([]byte(testTrackJSON), &st))

	track := st.ToTrack()
	assert.Equal(t, "Never Gonna Give You Up", track.Name)
	assert.Equal(t, []string{"Rick Astley"}, track.Artists)

	empty := SpotifyTrack{ID: "x"}.ToTrack()
	assert.Nil(t, empty.Artists)
}
