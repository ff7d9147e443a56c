// Package config loads and validates the calbot configuration file.
package config

import "fmt"

// DefaultModel is the Groq model used when none is configured.
const DefaultModel = "meta-llama/llama-4-maverick-17b-128e-instruct"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
			Bind: "loopback",
		},
		LLM: LLMConfig{
			Provider:  "groq",
			Model:     DefaultModel,
			MaxTokens: 2048,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
