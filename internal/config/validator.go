package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if provider == "bedrock" {
		return nil // AWS credential chain
	}
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	case "gemini":
		if !strings.HasPrefix(key, "AIza") {
			return fmt.Errorf("invalid Gemini API key format (should start with AIza)")
		}
	}

	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateBaseURL validates an absolute http(s) URL
func (v *Validator) ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base url %q: host is required", raw)
	}
	return nil
}

// ValidateConfig performs comprehensive validation and returns every problem found
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := cfg.Validate(); err != nil {
		errors = append(errors, err)
	}

	// Reasoning
	if err := v.ValidateAPIKey(cfg.Reasoning.APIKey, cfg.Reasoning.Provider); err != nil {
		errors = append(errors, fmt.Errorf("reasoning: %w", err))
	}
	if err := v.ValidateMaxTokens(cfg.Reasoning.PlanMaxTokens); err != nil {
		errors = append(errors, fmt.Errorf("reasoning plan: %w", err))
	}
	if err := v.ValidateMaxTokens(cfg.Reasoning.RespondMaxTokens); err != nil {
		errors = append(errors, fmt.Errorf("reasoning respond: %w", err))
	}
	if err := v.ValidateTemperature(cfg.Reasoning.PlanTemperature); err != nil {
		errors = append(errors, fmt.Errorf("reasoning plan: %w", err))
	}
	if err := v.ValidateTemperature(cfg.Reasoning.RespondTemperature); err != nil {
		errors = append(errors, fmt.Errorf("reasoning respond: %w", err))
	}

	// Market data
	if cfg.MarketData.BaseURL != "" {
		if err := v.ValidateBaseURL(cfg.MarketData.BaseURL); err != nil {
			errors = append(errors, fmt.Errorf("market_data: %w", err))
		}
	}
	if cfg.MarketData.TimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("market_data timeout_seconds must be >= 0"))
	}

	if cfg.Tools.TimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("tools timeout_seconds must be >= 0"))
	}

	if cfg.Server.ShutdownTimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("server shutdown_timeout_seconds must be >= 0"))
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
