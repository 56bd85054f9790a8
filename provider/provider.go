package provider

import (
	"context"
	"errors"

	"github.com/doganyilmaz/profile-assistant/config"
	openai_provider "github.com/doganyilmaz/profile-assistant/provider/openai"
)

// Client names supported LLM providers.
type Client string

const (
	OpenAI Client = "openai"
)

// Provider is the interface all LLM implementations must satisfy.
type Provider interface {
	// Complete generates a chat completion for a system/user prompt pair.
	Complete(ctx context.Context, system, user string) (string, error)

	// CreateEmbedding generates embeddings for the given texts; the result
	// order matches the input order.
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new LLM client based on the provided configuration.
func NewProvider(client Client, cfg config.ProvidersConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("providers.openai.api_key not set")
		}
		return openai_provider.NewOpenAIClient(cfg.OpenAI), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
