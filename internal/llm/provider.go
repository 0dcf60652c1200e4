// Package llm wraps third-party language model APIs behind a single
// structured-output Provider. The vocabulary matcher uses it to pick
// the catalog entries a free-text answer actually refers to.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured JSON from a prompt.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set the output has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request is one single-turn structured-output call: a system prompt,
// one user prompt and the schema the reply must satisfy.
type Request struct {
	System string
	Prompt string

	// Schema, when set, selects the provider's native structured output
	// mode. When nil, Content is the raw text.
	Schema *Schema

	MaxTokens int

	// Temperature ranges 0.0-1.0; zero means provider default.
	Temperature float64
}

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name is kebab-case, e.g. "vocabulary-match". It doubles as the
	// compiled-schema cache key.
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the LLM's output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// NewRequest builds a request at provider-default temperature.
func NewRequest(system, prompt string, schema *Schema, maxTokens int) Request {
	return Request{System: system, Prompt: prompt, Schema: schema, MaxTokens: maxTokens}
}

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Normalized stop reasons.
const (
	stopEnd       = "end"
	stopMaxTokens = "max_tokens"
)

// modelAliases maps short model names, per provider, to the ids sent on
// the wire. Anything else is passed through unchanged.
var modelAliases = map[string]map[string]string{
	ProviderAnthropic: {
		"claude-haiku":  "claude-haiku-4-5-20251001",
		"claude-sonnet": "claude-sonnet-4-5-20250929",
	},
	ProviderGemini: {
		"gemini-flash": "gemini-2.5-flash",
		"gemini-lite":  "gemini-2.5-flash-lite",
		"gemini-pro":   "gemini-2.5-pro",
	},
}

func resolveModel(provider, name string) string {
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}
