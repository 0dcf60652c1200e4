package llm

import (
	"errors"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-lite", "gemini-2.5-flash-lite"},
		{"gemini-2.0-flash", "gemini-2.0-flash"}, // pass-through
	}
	for _, tt := range tests {
		if got := resolveModel(ProviderGemini, tt.input); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGeminiConfig(t *testing.T) {
	req := NewRequest("pick ids", "la casa", matchSchema(), 128)
	req.Temperature = 0.2

	cfg := geminiConfig(req)
	if cfg.MaxOutputTokens != 128 {
		t.Errorf("MaxOutputTokens = %d", cfg.MaxOutputTokens)
	}
	if cfg.Temperature == nil || *cfg.Temperature != float32(0.2) {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "pick ids" {
		t.Errorf("SystemInstruction = %+v", cfg.SystemInstruction)
	}
	if cfg.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", cfg.ResponseMIMEType)
	}
	def, ok := cfg.ResponseJsonSchema.(map[string]any)
	if !ok || def["required"] == nil {
		t.Errorf("ResponseJsonSchema = %#v, want the request definition", cfg.ResponseJsonSchema)
	}

	plain := geminiConfig(NewRequest("", "la casa", nil, 16))
	if plain.SystemInstruction != nil || plain.Temperature != nil || plain.ResponseJsonSchema != nil {
		t.Errorf("unset fields leaked into config: %+v", plain)
	}
}

func TestGeminiStatus(t *testing.T) {
	code, ok := geminiStatus(genai.APIError{Code: http.StatusTooManyRequests})
	if !ok || code != http.StatusTooManyRequests {
		t.Errorf("value APIError = %d, %v", code, ok)
	}
	code, ok = geminiStatus(&genai.APIError{Code: http.StatusBadGateway})
	if !ok || code != http.StatusBadGateway {
		t.Errorf("pointer APIError = %d, %v", code, ok)
	}
	if _, ok := geminiStatus(errors.New("dial tcp: refused")); ok {
		t.Error("plain error reported a status")
	}

	var rl *ErrRateLimit
	if !errors.As(fromStatus(http.StatusTooManyRequests, errors.New("x")), &rl) {
		t.Error("429 not mapped to ErrRateLimit")
	}
	var down *ErrProviderUnavailable
	if !errors.As(fromStatus(http.StatusInternalServerError, errors.New("x")), &down) {
		t.Error("500 not mapped to ErrProviderUnavailable")
	}
}
