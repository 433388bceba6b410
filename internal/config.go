package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the client settings
type Config struct {
	BaseURL     string         `mapstructure:"base_url"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	CookieName  string         `mapstructure:"cookie_name"`
	CacheDir    string         `mapstructure:"cache_dir"`
	ArchivePath string         `mapstructure:"archive_path"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Poll        PollConfig     `mapstructure:"poll"`
	Settings    SettingsConfig `mapstructure:"settings"`
}

// CacheConfig sizes the in-memory caches
type CacheConfig struct {
	LogsMax  int           `mapstructure:"logs_max"`
	AdminTTL time.Duration `mapstructure:"admin_ttl"`
}

// PollConfig tunes the upload job poller
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SettingsConfig tunes the settings load retry
type SettingsConfig struct {
	Retries       int           `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// Validate checks the values a Console cannot work without
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &ValidationError{Field: "base_url", Msg: "must be set (config file, CHATDESK_BASE_URL or --base-url)"}
	}
	if c.Cache.LogsMax <= 0 {
		return &ValidationError{Field: "cache.logs_max", Msg: "must be > 0"}
	}
	if c.Settings.Retries < 0 {
		return &ValidationError{Field: "settings.retries", Msg: "must be >= 0"}
	}
	return nil
}

// ConsoleOptions converts the config into Console options
func (c *Config) ConsoleOptions() ConsoleOptions {
	return ConsoleOptions{
		LogCacheSize:          c.Cache.LogsMax,
		AdminCacheTTL:         c.Cache.AdminTTL,
		PollInterval:          c.Poll.Interval,
		PollTimeout:           c.Poll.Timeout,
		SettingsRetries:       c.Settings.Retries,
		SettingsRetryInterval: c.Settings.RetryInterval,
	}
}

// NewViper returns a viper instance with every default set and CHATDESK_*
// environment variables bound
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("base_url", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("cookie_name", DefaultCookieName)
	v.SetDefault("cache_dir", "")
	v.SetDefault("archive_path", "")
	v.SetDefault("cache.logs_max", DefaultLogCacheSize)
	v.SetDefault("cache.admin_ttl", DefaultAdminCacheTTL)
	v.SetDefault("poll.interval", DefaultPollInterval)
	v.SetDefault("poll.timeout", DefaultPollTimeout)
	v.SetDefault("settings.retries", DefaultSettingsRetries)
	v.SetDefault("settings.retry_interval", DefaultSettingsRetryInterval)

	v.SetEnvPrefix("CHATDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads path, or ~/.chatdesk.yaml when path is empty. A missing
// default file is not an error.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".chatdesk")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &ParseError{Source: "config", Key: path, Err: err}
		}
		LogDebug("no config file found, using defaults and environment")
	} else {
		LogDebug("using config file %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ParseError{Source: "config", Key: v.ConfigFileUsed(), Err: err}
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if cfg.CacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}
		cfg.CacheDir = dir
	}
	if cfg.ArchivePath == "" {
		path, err := DefaultArchivePath()
		if err != nil {
			return nil, err
		}
		cfg.ArchivePath = path
	}
	return &cfg, nil
}

// Credentials is the saved login
type Credentials struct {
	BaseURL  string    `yaml:"base_url"`
	Username string    `yaml:"username"`
	Token    string    `yaml:"token"`
	SavedAt  time.Time `yaml:"saved_at"`
}

// DefaultCredentialsPath returns ~/.chatdesk/credentials.yaml
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".chatdesk", "credentials.yaml"), nil
}

// LoadCredentials reads saved credentials. A missing file yields nil, nil.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, &ParseError{Source: "credentials", Key: path, Err: err}
	}
	return &creds, nil
}

// SaveCredentials writes creds readable by the owner only
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &StorageError{Path: path, Op: "mkdir", Err: err}
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// RemoveCredentials deletes the saved login, if any
func RemoveCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StorageError{Path: path, Op: "remove", Err: err}
	}
	return nil
}
