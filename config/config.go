package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appDir = ".claimwise"

// Environment variables that override the config file
const (
	EnvAPIURL      = "CLAIMWISE_API_URL"
	EnvLogLevel    = "CLAIMWISE_LOG_LEVEL"
	EnvLogFile     = "CLAIMWISE_LOG_FILE"
	EnvDatabaseURL = "CLAIMWISE_DATABASE_URL"
	EnvTokenFile   = "CLAIMWISE_TOKEN_FILE"
)

// Config holds application configuration
type Config struct {
	API struct {
		BaseURL    string        `yaml:"base_url"`
		Retries    int           `yaml:"retries"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Polling struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"polling"`
	Voice struct {
		FFmpegPath  string        `yaml:"ffmpeg_path"`
		InputFormat string        `yaml:"input_format"`
		InputDevice string        `yaml:"input_device"`
		PlayerPath  string        `yaml:"player_path"`
		MaxDuration time.Duration `yaml:"max_duration"`
		Slice       time.Duration `yaml:"slice"`
		MinBytes    int           `yaml:"min_bytes"`
		SettleDelay time.Duration `yaml:"settle_delay"`
	} `yaml:"voice"`
	Upload struct {
		MaxSize int64 `yaml:"max_size"`
	} `yaml:"upload"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Activity struct {
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"activity"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Paths struct {
		TokenFile  string `yaml:"token_file"`
		LettersDir string `yaml:"letters_dir"`
	} `yaml:"paths"`
}

// Dir returns the directory holding the config, token and log files
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), appDir)
}

// Path returns the config file location
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load loads configuration from file or returns defaults.
// A .env file in the working directory is read first, then the config
// file, then environment overrides.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	configPath := Path()
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		c.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		c.Activity.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTokenFile)); v != "" {
		c.Paths.TokenFile = v
	}
}

// Validate rejects values the client cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q", c.API.BaseURL)
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("api.retries must be >= 0, got %d", c.API.Retries)
	}
	if c.API.RetryDelay < 0 {
		return fmt.Errorf("api.retry_delay must be >= 0")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	if c.Voice.MaxDuration <= 0 || c.Voice.Slice <= 0 {
		return fmt.Errorf("voice.max_duration and voice.slice must be positive")
	}
	if c.Voice.MinBytes < 0 {
		return fmt.Errorf("voice.min_bytes must be >= 0")
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload.max_size must be positive")
	}
	return nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(Path(), data, 0644)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.API.BaseURL = "http://localhost:8000"
	cfg.API.Retries = 2
	cfg.API.RetryDelay = time.Second
	cfg.API.Timeout = 30 * time.Second
	cfg.Polling.Interval = 500 * time.Millisecond

	cfg.Voice.FFmpegPath = "ffmpeg"
	cfg.Voice.InputFormat = "pulse"
	cfg.Voice.InputDevice = "default"
	cfg.Voice.PlayerPath = "ffplay"
	cfg.Voice.MaxDuration = 60 * time.Second
	cfg.Voice.Slice = time.Second
	cfg.Voice.MinBytes = 1000
	cfg.Voice.SettleDelay = 300 * time.Millisecond

	cfg.Upload.MaxSize = 10 << 20
	cfg.Cache.TTL = 5 * time.Minute

	cfg.Logging.Level = "info"
	cfg.Logging.File = filepath.Join(Dir(), "claimwise.log")

	cfg.Paths.TokenFile = filepath.Join(Dir(), "token")
	cfg.Paths.LettersDir = filepath.Join(os.Getenv("HOME"), "claimwise-letters")

	return cfg
}
