package llm

import "fmt"

const openRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider speaks the OpenAI wire format to OpenRouter, which
// routes "vendor/model" ids to many backends.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	url := cfg.BaseURL
	if url == "" {
		url = openRouterURL
	}
	inner, err := NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: url})
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}
