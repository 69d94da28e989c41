package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Bot      BotConfig      `toml:"bot"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret Secret `toml:"client_secret"`
}

// ServerConfig contains settings for the OAuth redirect capture server.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	Path        string   `toml:"path"`
	VerifyState bool     `toml:"verify_state"`
	AuthTimeout Duration `toml:"auth_timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BotConfig contains timing and limits for the bot's background tasks.
type BotConfig struct {
	PollInterval      Duration `toml:"poll_interval"`
	NixInterval       Duration `toml:"nix_interval"`
	NixMessage        string   `toml:"nix_message"`
	QueueLimit        int      `toml:"queue_limit"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// envOverrides holds the environment variables that take precedence over the config file. It is seeded with the
// current values, so variables that are unset or empty leave them untouched.
type envOverrides struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret Secret `env:"SPOTIFY_CLIENT_SECRET"`
	Host         string `env:"REDIRECT_SERVER_HOST"`
	Port         int    `env:"REDIRECT_SERVER_PORT"`
	Path         string `env:"REDIRECT_SERVER_PATH"`
	DatabasePath string `env:"SONGBOT_DATABASE_PATH"`
	LogLevel     string `env:"SONGBOT_LOG_LEVEL"`
}

// nonEmptySource reports variables set to "" as unset, so a blank line in .env never clears a file value.
type nonEmptySource struct{}

func (nonEmptySource) LookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok && value != ""
}

// Secret is a string that is redacted when printed or logged.
type Secret string

// String implements [fmt.Stringer].
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

// Value returns the underlying secret.
func (s Secret) Value() string {
	return string(s)
}

// Duration wraps [time.Duration] so it can be written as "5s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Resolve builds the effective configuration: embedded defaults, then the TOML file at path (if it exists), then .env
// and process environment overrides. Unlike [Load] it does not validate the result.
func Resolve(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err = LoadConfig(path); err != nil {
				return nil, err
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Load resolves the configuration like [Resolve] and validates it.
func Load(path string) (*Config, error) {
	config, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides config values with any non-empty environment variables.
func ApplyEnv(config *Config) error {
	overrides := envOverrides{
		ClientID:     config.Spotify.ClientID,
		ClientSecret: config.Spotify.ClientSecret,
		Host:         config.Server.Host,
		Port:         config.Server.Port,
		Path:         config.Server.Path,
		DatabasePath: config.Database.Path,
		LogLevel:     config.Log.Level,
	}
	if err := env.Load(&overrides, &env.Options{Source: nonEmptySource{}}); err != nil {
		return fmt.Errorf("%w: failed to load environment variables: %w", ErrInvalidConfig, err)
	}

	config.Spotify.ClientID = overrides.ClientID
	config.Spotify.ClientSecret = overrides.ClientSecret
	config.Server.Host = overrides.Host
	config.Server.Port = overrides.Port
	config.Server.Path = overrides.Path
	config.Database.Path = overrides.DatabasePath
	config.Log.Level = overrides.LogLevel

	return nil
}

// Validate checks that required credentials are present and values are in range.
func (c *Config) Validate() error {
	var errs []error

	if c.Spotify.ClientID == "" {
		errs = append(errs, fmt.Errorf("%w: SPOTIFY_CLIENT_ID is required", ErrMissingCredentials))
	}
	if c.Spotify.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("%w: SPOTIFY_CLIENT_SECRET is required", ErrMissingCredentials))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port))
	}
	if strings.Trim(c.Server.Path, "/") == "" {
		errs = append(errs, fmt.Errorf("%w: redirect path must not be empty", ErrInvalidConfig))
	}
	if c.Bot.PollInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: bot.poll_interval must be positive, got %s", ErrInvalidConfig, c.Bot.PollInterval))
	}
	if c.Bot.NixInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%w: bot.nix_interval must be positive, got %s", ErrInvalidConfig, c.Bot.NixInterval))
	}

	return errors.Join(errs...)
}

// RedirectPath returns the capture server route for the OAuth redirect, always with a single leading slash.
func (s ServerConfig) RedirectPath() string {
	return "/" + strings.Trim(s.Path, "/")
}

// RedirectURL returns the redirect URI registered with Spotify.
func (s ServerConfig) RedirectURL() string {
	return fmt.Sprintf("http://%s:%d%s", s.Host, s.Port, s.RedirectPath())
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
