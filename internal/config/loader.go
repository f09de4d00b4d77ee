package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "STOCKAGENT"
	configDirName  = ".stockagent"
	configFileName = "stockagent.json"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment.
// A missing file is not an error: defaults plus environment overrides are used.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetConfigType("json")

	// Environment overrides, e.g. STOCKAGENT_REASONING_API_KEY
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set data directory if not specified
	if cfg.DataDir == "" && configPath != "" {
		cfg.DataDir = filepath.Dir(configPath)
	}

	l.v = v
	return cfg, nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to determine config path")
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", cfg.Server)
	v.Set("reasoning", cfg.Reasoning)
	v.Set("market_data", cfg.MarketData)
	v.Set("tools", cfg.Tools)
	v.Set("logging", cfg.Logging)
	v.Set("tracing", cfg.Tracing)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if err := v.SafeWriteConfig(); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// Watch invokes onChange with the reloaded config every time the config file changes.
// It must be called after Load and is a no-op when no config file was read.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.v == nil || l.v.ConfigFileUsed() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg := DefaultConfig()
		if err := l.v.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, configFileName)
}

// bindEnv registers every key so AutomaticEnv also applies to Unmarshal,
// which only sees keys viper already knows about.
func bindEnv(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port", "server.stream_progress", "server.shutdown_timeout_seconds",
		"reasoning.provider", "reasoning.model", "reasoning.api_key", "reasoning.region",
		"reasoning.plan_max_tokens", "reasoning.plan_temperature",
		"reasoning.respond_max_tokens", "reasoning.respond_temperature",
		"market_data.base_url", "market_data.timeout_seconds", "market_data.user_agent",
		"tools.max_concurrency", "tools.report_rejected", "tools.timeout_seconds",
		"logging.level", "logging.file", "logging.pretty", "logging.redaction",
		"logging.max_size", "logging.max_age", "logging.compress",
		"tracing.enabled", "tracing.service_name",
		"data_dir",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
