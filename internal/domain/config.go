package domain

import (
	"fmt"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Slskd        SlskdConfig        `mapstructure:"slskd"`
	Download     DownloadConfig     `mapstructure:"download"`
	Monitor      MonitorConfig      `mapstructure:"monitor"`
	Import       ImportConfig       `mapstructure:"import"`
	Matching     MatchingConfig     `mapstructure:"matching"`
	Store        StoreConfig        `mapstructure:"store"`
	Progress     ProgressConfig     `mapstructure:"progress"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SlskdConfig contains the connection settings of the download service
type SlskdConfig struct {
	Backend            BackendID     `mapstructure:"backend"`
	URL                string        `mapstructure:"url"`
	APIKey             string        `mapstructure:"api_key"`
	DownloadDir        string        `mapstructure:"download_dir"` // where the service stores completed transfers
	SearchTimeout      time.Duration `mapstructure:"search_timeout"`
	SearchPollInterval time.Duration `mapstructure:"search_poll_interval"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// DownloadConfig is the batching policy for one acquisition session.
type DownloadConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// Validate checks the batching policy bounds
func (c DownloadConfig) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.BatchDelay < 0 {
		return fmt.Errorf("%w: batch delay cannot be negative", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("%w: retry base delay cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// MonitorConfig controls completion polling
type MonitorConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts"`
}

// ImportConfig contains importer-related configuration
type ImportConfig struct {
	Importer   ImporterID    `mapstructure:"importer"`
	Binary     string        `mapstructure:"binary"`
	ConfigPath string        `mapstructure:"config_path"`
	TargetDir  string        `mapstructure:"target_dir"`
	AlbumMode  bool          `mapstructure:"album_mode"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MatchingConfig tunes candidate filtering during search
type MatchingConfig struct {
	MinSimilarity float64 `mapstructure:"min_similarity"` // 0 disables relevance filtering
	AudioOnly     bool    `mapstructure:"audio_only"`
}

// StoreConfig contains acquisition history storage configuration
type StoreConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// ProgressConfig controls progress fan-out
type ProgressConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 9765,
		},
		Slskd: SlskdConfig{
			Backend:            BackendSlskd,
			URL:                "http://localhost:5030",
			DownloadDir:        "/downloads",
			SearchTimeout:      30 * time.Second,
			SearchPollInterval: time.Second,
			RequestTimeout:     30 * time.Second,
		},
		Download: DownloadConfig{
			BatchSize:      3,
			BatchDelay:     3 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
		Monitor: MonitorConfig{
			PollInterval:    2 * time.Second,
			MaxPollAttempts: 600,
		},
		Import: ImportConfig{
			Importer:   ImporterBeets,
			Binary:     "beet",
			ConfigPath: "beets_config.yaml",
			TargetDir:  "$HOME/Music",
			AlbumMode:  true,
			Timeout:    30 * time.Minute,
		},
		Matching: MatchingConfig{
			MinSimilarity: 0.75,
			AudioOnly:     true,
		},
		Store: StoreConfig{
			DatabasePath: "$HOME/.cratedig/cratedig.db",
		},
		Progress: ProgressConfig{
			SubscriberBuffer: 64,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.cratedig/logs",
		},
	}
}
