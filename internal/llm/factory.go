package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → logging → base.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(WithLogging(base, eventRepo, log), cfg.Retry), nil
}

// NewEmbedder creates the Embedder selected by cfg.Embedding. With no
// explicit choice it uses the generation provider's vendor when that
// vendor embeds and a key is present, and the hash embedder otherwise.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	kind := cfg.Embedding.Provider
	if kind == "" {
		switch {
		case cfg.Provider == "gemini" && cfg.Gemini.APIKey != "":
			kind = "gemini"
		case cfg.Provider == "openai" && cfg.OpenAI.APIKey != "":
			kind = "openai"
		default:
			kind = "hash"
		}
	}

	dims := cfg.Embedding.Dimensions
	switch kind {
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.Gemini.APIKey, cfg.Embedding.Model, dims)
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Embedding.Model, dims)
	case "hash":
		return NewHashEmbedder(dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", kind)
	}
}
