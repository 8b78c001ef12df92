package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/yourusername/cratedig-go/internal/domain"
)

const envPrefix = "CRATEDIG"

// Keys that may be set through CRATEDIG_* variables without a config file.
var envKeys = []string{
	"server.host",
	"server.port",
	"slskd.url",
	"slskd.api_key",
	"slskd.download_dir",
	"import.binary",
	"import.config_path",
	"import.target_dir",
	"store.database_path",
	"logging.level",
	"logging.logs_dir",
}

// LoadConfig loads configuration from .env, the config file and the environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.cratedig")
		v.AddConfigPath("/etc/cratedig")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func expandPaths(config *domain.Config) {
	config.Slskd.DownloadDir = expandPath(config.Slskd.DownloadDir)
	config.Import.TargetDir = expandPath(config.Import.TargetDir)
	config.Import.ConfigPath = expandPath(config.Import.ConfigPath)
	config.Store.DatabasePath = expandPath(config.Store.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}
}

// expandPath expands environment variables and a leading ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}
	return os.ExpandEnv(path)
}

func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Slskd.URL == "" {
		return fmt.Errorf("download service url not configured")
	}
	if config.Slskd.DownloadDir == "" {
		return fmt.Errorf("download service directory not configured")
	}
	if err := config.Download.Validate(); err != nil {
		return err
	}
	if config.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor poll interval must be positive")
	}
	if config.Monitor.MaxPollAttempts < 1 {
		return fmt.Errorf("monitor max poll attempts must be at least 1")
	}
	if config.Import.TargetDir == "" {
		return fmt.Errorf("import target directory not configured")
	}
	if config.Matching.MinSimilarity < 0 || config.Matching.MinSimilarity > 1 {
		return fmt.Errorf("min similarity must be within [0,1], got %v", config.Matching.MinSimilarity)
	}
	if config.Store.DatabasePath == "" {
		return fmt.Errorf("store database path not configured")
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	return nil
}

// SaveConfig saves configuration to file using the same keys LoadConfig reads
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	sections := map[string]interface{}{
		"server":       config.Server,
		"slskd":        config.Slskd,
		"download":     config.Download,
		"monitor":      config.Monitor,
		"import":       config.Import,
		"matching":     config.Matching,
		"store":        config.Store,
		"progress":     config.Progress,
		"notification": config.Notification,
		"logging":      config.Logging,
	}
	for name, section := range sections {
		values, err := sectionValues(section)
		if err != nil {
			return fmt.Errorf("failed to encode %s config: %w", name, err)
		}
		v.Set(name, values)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// sectionValues flattens a config section into its mapstructure keys, writing
// durations in their readable form.
func sectionValues(section interface{}) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	if err := mapstructure.Decode(section, &values); err != nil {
		return nil, err
	}
	for k, val := range values {
		if d, ok := val.(time.Duration); ok {
			values[k] = d.String()
		}
	}
	return values, nil
}
