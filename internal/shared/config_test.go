package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override so the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "REDIRECT_SERVER_HOST", "REDIRECT_SERVER_PORT",
		"REDIRECT_SERVER_PATH", "SONGBOT_DATABASE_PATH", "SONGBOT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		assert.Equal(t, 3939, config.Server.Port)
		assert.Equal(t, "redirect", config.Server.Path)
		assert.Equal(t, "127.0.0.1", config.Server.Host)
		assert.False(t, config.Server.VerifyState)
		assert.Equal(t, 2*time.Minute, config.Server.AuthTimeout.Duration)
		assert.Equal(t, "./songbot.db", config.Database.Path)
		assert.Equal(t, 5*time.Second, config.Bot.PollInterval.Duration)
		assert.Equal(t, 30*time.Minute, config.Bot.NixInterval.Duration)
		assert.Equal(t, "info", config.Log.Level)
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		require.NoError(t, CreateConfigFile(configPath))

		config, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Database.Path, config.Database.Path)

		assert.Error(t, CreateConfigFile(configPath), "creating config file again should fail")
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[spotify]
client_id = "file_client_id"
client_secret = "file_secret"

[server]
port = 8080
`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		config, err := LoadConfig(configPath)
		require.NoError(t, err)

		assert.Equal(t, 8080, config.Server.Port)
		assert.Equal(t, "redirect", config.Server.Path)
		assert.Equal(t, "file_client_id", config.Spotify.ClientID)
		assert.Equal(t, "file_secret", config.Spotify.ClientSecret.Value())
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(configPath, []byte("[bot]\npoll_interval = \"soon\"\n"), 0644))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("environment only", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

		config, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "env-id", config.Spotify.ClientID)
		assert.Equal(t, "env-secret", config.Spotify.ClientSecret.Value())
		assert.Equal(t, 3939, config.Server.Port)
		assert.Equal(t, "redirect", config.Server.Path)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		clearEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[spotify]
client_id = "file_client_id"
client_secret = "file_secret"

[server]
port = 8080
path = "callback"
`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))
		t.Setenv("REDIRECT_SERVER_PORT", "4040")
		t.Setenv("REDIRECT_SERVER_PATH", "oauth")
		t.Setenv("SONGBOT_LOG_LEVEL", "debug")

		config, err := Load(configPath)
		require.NoError(t, err)

		assert.Equal(t, "file_client_id", config.Spotify.ClientID)
		assert.Equal(t, 4040, config.Server.Port)
		assert.Equal(t, "oauth", config.Server.Path)
		assert.Equal(t, "debug", config.Log.Level)
	})

	t.Run("missing credentials", func(t *testing.T) {
		clearEnv(t)

		_, err := Load("")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingCredentials))
		assert.Contains(t, err.Error(), "SPOTIFY_CLIENT_ID is required")
		assert.Contains(t, err.Error(), "SPOTIFY_CLIENT_SECRET is required")
	})

	t.Run("Resolve skips validation", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SONGBOT_DATABASE_PATH", "/tmp/resolve.db")

		config, err := Resolve("")
		require.NoError(t, err)
		assert.Empty(t, config.Spotify.ClientID)
		assert.Equal(t, "/tmp/resolve.db", config.Database.Path)
	})

	t.Run("non numeric port", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
		t.Setenv("REDIRECT_SERVER_PORT", "http")

		_, err := Load("")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		assert.Contains(t, err.Error(), "failed to load environment variables")
	})

	t.Run("empty variables keep file values", func(t *testing.T) {
		clearEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[spotify]
client_id = "file_client_id"
client_secret = "file_secret"

[server]
port = 9090
`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		config, err := Load(configPath)
		require.NoError(t, err)
		assert.Equal(t, 9090, config.Server.Port)
		assert.Equal(t, "file_client_id", config.Spotify.ClientID)
		assert.Equal(t, Secret("file_secret"), config.Spotify.ClientSecret)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		config := DefaultConfig()
		config.Spotify.ClientID = "id"
		config.Spotify.ClientSecret = "secret"
		return config
	}

	tc := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, want: "port 70000 out of range"},
		{name: "empty path", mutate: func(c *Config) { c.Server.Path = "/" }, want: "redirect path must not be empty"},
		{name: "zero poll interval", mutate: func(c *Config) { c.Bot.PollInterval = Duration{} }, want: "bot.poll_interval must be positive"},
		{name: "negative nix interval", mutate: func(c *Config) { c.Bot.NixInterval = Duration{Duration: -time.Minute} }, want: "bot.nix_interval must be positive"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("zero interval from file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
		configPath := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(configPath, []byte("[bot]\npoll_interval = \"0s\"\n"), 0644))

		_, err := Load(configPath)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestServerConfig(t *testing.T) {
	tc := []struct {
		name     string
		path     string
		wantPath string
	}{
		{name: "bare", path: "redirect", wantPath: "/redirect"},
		{name: "leading slash", path: "/redirect", wantPath: "/redirect"},
		{name: "both slashes", path: "/auth/callback/", wantPath: "/auth/callback"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			s := ServerConfig{Host: "127.0.0.1", Port: 3939, Path: tt.path}
			assert.Equal(t, tt.wantPath, s.RedirectPath())
			assert.Equal(t, "http://127.0.0.1:3939"+tt.wantPath, s.RedirectURL())
		})
	}
}

func TestSecret(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[redacted]", s.String())
	assert.Equal(t, "[redacted]", fmt.Sprintf("%v", s))
	assert.Equal(t, "hunter2", s.Value())
	assert.Equal(t, "", Secret("").String())
}
