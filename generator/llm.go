package generator

import (
	"context"
	"fmt"
)

// LLMClient abstracts the model backend so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the provider-independent configuration handed to NewLLM.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewLLM builds the client for settings.Provider.
func NewLLM(ctx context.Context, settings LLMSettings) (LLMClient, error) {
	switch settings.Provider {
	case "gemini":
		return NewGeminiLLM(ctx, &settings)
	case "openai":
		return NewOpenAILLMFromConfig(&settings)
	case "deepseek":
		// DeepSeek exposes an OpenAI-compatible API; base_url is mandatory.
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLMFromConfig(&settings)
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", settings.Provider)
	}
}
