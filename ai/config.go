// Package ai provides the provider adapters the matching pipeline depends on:
// an OpenAI-compatible embedding service and the judgment LLM configuration.
package ai

import (
	"errors"

	"github.com/hrygo/skillswap/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	Judge     JudgeConfig
	Enabled   bool
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int

	// RequestsPerSecond caps calls to the provider; zero means no limit.
	RequestsPerSecond float64
}

// JudgeConfig represents judgment LLM configuration.
type JudgeConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.3
	Timeout     int     // request timeout in seconds (default: 30)
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.AIEnabled,
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.AIEmbeddingProvider,
		Model:      p.AIEmbeddingModel,
		APIKey:     p.AIEmbeddingAPIKey,
		BaseURL:    p.AIEmbeddingBaseURL,
		Dimensions: p.AIEmbeddingDimensions,
	}

	// Low temperature: the judge emits structured JSON, not prose.
	cfg.Judge = JudgeConfig{
		Provider:    p.AIJudgeProvider,
		Model:       p.AIJudgeModel,
		APIKey:      p.AIJudgeAPIKey,
		BaseURL:     p.AIJudgeBaseURL,
		MaxTokens:   1024,
		Temperature: 0.3,
		Timeout:     p.AIJudgeTimeout,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}

	if !c.Enabled {
		return nil
	}

	if c.Judge.Provider == "" {
		return errors.New("judge provider is required")
	}
	if c.Judge.Provider != "ollama" && c.Judge.APIKey == "" {
		return errors.New("judge API key is required")
	}

	return nil
}
