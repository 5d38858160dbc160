// Package ai provides the completion and embedding provider used by the agent.
package ai

import (
	"time"

	"github.com/pepavlin/agent-manager-sub000/internal/profile"
)

// Config holds the AI provider configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	MaxRetries     int
	Timeout        time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.openai.com/v1",
		APIKey:         "",
		ChatModel:      "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   1536,
		MaxRetries:     3,
		Timeout:        30 * time.Second,
	}
}

// ConfigFromProfile builds a provider config from the server profile.
func ConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	if p.AIBaseURL != "" {
		cfg.BaseURL = p.AIBaseURL
	}
	cfg.APIKey = p.AIAPIKey
	if p.AIChatModel != "" {
		cfg.ChatModel = p.AIChatModel
	}
	if p.AIEmbeddingModel != "" {
		cfg.EmbeddingModel = p.AIEmbeddingModel
	}
	if p.AIEmbeddingDim > 0 {
		cfg.EmbeddingDim = p.AIEmbeddingDim
	}
	return cfg
}
