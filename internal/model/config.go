package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig locates the DocFlow API for clients.
type APIConfig struct {
	// BaseURL is the admin API root, e.g. http://localhost:8080/api/admin.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WSURL is the push channel endpoint.
	WSURL string `mapstructure:"ws_url" yaml:"ws_url"`
}

// FeedConfig tunes the live feed client.
type FeedConfig struct {
	// MaxActivities caps the event buffer.
	MaxActivities int `mapstructure:"max_activities" yaml:"max_activities"`

	// PollInterval is the fallback refresh period while push is down.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// InitialLimit is how many activities the initial load requests.
	InitialLimit int `mapstructure:"initial_limit" yaml:"initial_limit"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Addr       string        `mapstructure:"addr" yaml:"addr"`
	DevMode    bool          `mapstructure:"dev_mode" yaml:"dev_mode"`
	RateLimit  int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window" yaml:"rate_window"`
}

// DBConfig selects the storage backend. Driver is "sqlite" or "pgx".
type DBConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	// JWTSecret signs and verifies access tokens. Never written to disk
	// by SaveConfig.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"-"`

	// TokenTTL is the lifetime of minted access tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// RedisConfig enables the cross-instance broadcast bus and shared rate
// limiting when URL is set.
type RedisConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// UIConfig holds terminal dashboard preferences.
type UIConfig struct {
	// Lang is "fi" or "en".
	Lang string `mapstructure:"lang" yaml:"lang"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API    APIConfig    `mapstructure:"api" yaml:"api"`
	Feed   FeedConfig   `mapstructure:"feed" yaml:"feed"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	DB     DBConfig     `mapstructure:"db" yaml:"db"`
	Auth   AuthConfig   `mapstructure:"auth" yaml:"auth"`
	Redis  RedisConfig  `mapstructure:"redis" yaml:"redis"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	UI     UIConfig     `mapstructure:"ui" yaml:"ui"`
}

// ConfigDir returns ~/.config/docflow, or the working directory when the
// home directory cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "docflow")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/docflow/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api/admin")
	v.SetDefault("api.ws_url", "ws://localhost:8080/api/admin/feed")
	v.SetDefault("feed.max_activities", 50)
	v.SetDefault("feed.poll_interval", 30*time.Second)
	v.SetDefault("feed.initial_limit", 20)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_window", 60*time.Second)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", filepath.Join(ConfigDir(), "docflow.db"))
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 15*time.Minute)
	v.SetDefault("redis.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ui.lang", "fi")
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// overlaid with DOCFLOW_* environment variables (e.g. DOCFLOW_FEED_POLL_INTERVAL).
// A missing file is not an error.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DOCFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize repairs values that would break the feed or the server.
func (c *AppConfig) normalize() {
	if c.Feed.MaxActivities <= 0 {
		c.Feed.MaxActivities = 50
	}
	if c.Feed.PollInterval <= 0 {
		c.Feed.PollInterval = 30 * time.Second
	}
	if c.Feed.InitialLimit <= 0 {
		c.Feed.InitialLimit = 20
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 60
	}
	if c.Server.RateWindow <= 0 {
		c.Server.RateWindow = time.Minute
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 15 * time.Minute
	}
	if c.UI.Lang != "en" {
		c.UI.Lang = "fi"
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The signing secret is omitted.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("feed", cfg.Feed)
	v.Set("server", cfg.Server)
	v.Set("db", cfg.DB)
	v.Set("auth.token_ttl", cfg.Auth.TokenTTL)
	v.Set("redis", cfg.Redis)
	v.Set("log", cfg.Log)
	v.Set("ui", cfg.UI)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
