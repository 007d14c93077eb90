package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds LLM and embedding provider configuration.
type Config struct {
	// Provider selects the generation backend.
	// Values: "gemini", "openai", "anthropic", "openrouter", "mock"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Embedding  EmbeddingConfig
	Retry      RetryConfig

	// Timeout bounds a single generation including retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional override for compatible APIs.
}

type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-001"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// EmbeddingConfig selects the embedder used for semantic retrieval.
type EmbeddingConfig struct {
	// Provider is "gemini", "openai" or "hash". Empty follows Provider
	// where that backend can embed, and falls back to "hash".
	Provider   string
	Model      string
	Dimensions int
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Embedding:  EmbeddingConfig{Dimensions: 768},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from COGNIFY_* variables. API keys fall
// back to the vendor's conventional variable when the prefixed one is
// unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Provider, "COGNIFY_LLM_PROVIDER")

	cfg.Anthropic.APIKey = firstEnv("COGNIFY_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "COGNIFY_ANTHROPIC_MODEL")

	cfg.OpenAI.APIKey = firstEnv("COGNIFY_OPENAI_API_KEY", "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "COGNIFY_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "COGNIFY_OPENAI_BASE_URL")

	cfg.Gemini.APIKey = firstEnv("COGNIFY_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	setString(&cfg.Gemini.Model, "COGNIFY_GEMINI_MODEL")

	cfg.OpenRouter.APIKey = firstEnv("COGNIFY_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "COGNIFY_OPENROUTER_MODEL")

	setString(&cfg.Embedding.Provider, "COGNIFY_EMBED_PROVIDER")
	setString(&cfg.Embedding.Model, "COGNIFY_EMBED_MODEL")
	if v := os.Getenv("COGNIFY_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embedding.Dimensions = n
		}
	}

	if v := os.Getenv("COGNIFY_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	return cfg
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	missing := func(name string) error {
		return fmt.Errorf("COGNIFY_%s_API_KEY is required for the %s provider", strings.ToUpper(name), name)
	}
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return missing(c.Provider)
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return missing(c.Provider)
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return missing(c.Provider)
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return missing(c.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
