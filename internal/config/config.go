package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main stockagent configuration
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Reasoning provider used by the plan and respond stages
	Reasoning ReasoningConfig `json:"reasoning" mapstructure:"reasoning"`

	// Market data source used by the tools
	MarketData MarketDataConfig `json:"market_data" mapstructure:"market_data"`

	// Tool dispatch
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host                   string `json:"host" mapstructure:"host"`
	Port                   int    `json:"port" mapstructure:"port"`
	StreamProgress         bool   `json:"stream_progress" mapstructure:"stream_progress"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// ReasoningConfig holds reasoning provider configuration
type ReasoningConfig struct {
	Provider string `json:"provider" mapstructure:"provider"` // bedrock, anthropic, openai, gemini
	Model    string `json:"model" mapstructure:"model"`
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Region   string `json:"region" mapstructure:"region"` // bedrock only

	PlanMaxTokens      int     `json:"plan_max_tokens" mapstructure:"plan_max_tokens"`
	PlanTemperature    float64 `json:"plan_temperature" mapstructure:"plan_temperature"`
	RespondMaxTokens   int     `json:"respond_max_tokens" mapstructure:"respond_max_tokens"`
	RespondTemperature float64 `json:"respond_temperature" mapstructure:"respond_temperature"`
}

// MarketDataConfig holds market data client configuration
type MarketDataConfig struct {
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	UserAgent      string `json:"user_agent" mapstructure:"user_agent"`
}

// ToolsConfig holds tool dispatch configuration
type ToolsConfig struct {
	MaxConcurrency int  `json:"max_concurrency" mapstructure:"max_concurrency"`
	ReportRejected bool `json:"report_rejected" mapstructure:"report_rejected"`
	TimeoutSeconds int  `json:"timeout_seconds" mapstructure:"timeout_seconds"` // per tool execution
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// Supported reasoning providers
var validProviders = []string{"bedrock", "anthropic", "openai", "gemini"}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8080,
			StreamProgress:         false,
			ShutdownTimeoutSeconds: 30,
		},
		Reasoning: ReasoningConfig{
			Provider:           "bedrock",
			Model:              "anthropic.claude-v2",
			Region:             "us-west-2",
			PlanMaxTokens:      300,
			PlanTemperature:    0.3,
			RespondMaxTokens:   200,
			RespondTemperature: 0.5,
		},
		MarketData: MarketDataConfig{
			BaseURL:        "https://query1.finance.yahoo.com",
			TimeoutSeconds: 10,
			UserAgent:      "Mozilla/5.0 (compatible; stockagent/0.1)",
		},
		Tools: ToolsConfig{
			MaxConcurrency: 8,
			ReportRejected: false,
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "stockagent",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	valid := false
	for _, vp := range validProviders {
		if c.Reasoning.Provider == vp {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid reasoning provider %q (must be: bedrock, anthropic, openai, gemini)", c.Reasoning.Provider)
	}

	if c.Reasoning.Model == "" {
		return fmt.Errorf("reasoning model is required")
	}

	// Bedrock authenticates through the AWS credential chain, everything else needs a key
	if c.Reasoning.Provider == "bedrock" {
		if c.Reasoning.Region == "" {
			return fmt.Errorf("reasoning region is required for bedrock")
		}
	} else if c.Reasoning.APIKey == "" {
		return fmt.Errorf("reasoning api_key is required for provider %s", c.Reasoning.Provider)
	}

	if c.MarketData.BaseURL == "" {
		return fmt.Errorf("market_data base_url is required")
	}

	if c.Tools.MaxConcurrency <= 0 {
		return fmt.Errorf("tools max_concurrency must be positive, got %d", c.Tools.MaxConcurrency)
	}

	return nil
}
