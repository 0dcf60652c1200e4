package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var okMatch = MockResponse{Content: json.RawMessage(`{"vocabulary_ids":["v1"]}`)}

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
}

func invalid() MockResponse {
	return MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{}`), Err: errors.New("bad")}}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{okMatch}, false, 1},
		{"transient then success", []MockResponse{down(), okMatch}, false, 2},
		{"exhausted", []MockResponse{down(), down(), down(), okMatch}, true, 3},
		{"rate limit with retry-after", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond}}, okMatch}, false, 2},
		{"truncation is final", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okMatch}, true, 1},
		{"invalid output retried once", []MockResponse{invalid(), invalid(), okMatch}, true, 2},
		{"invalid output then success", []MockResponse{invalid(), okMatch}, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, fastRetry())

			_, err := p.Generate(context.Background(), NewRequest("", "casa", matchSchema(), 32))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	mock := NewMockProvider(down(), okMatch)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Second, MaxWait: time.Second, Multiplier: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetry_ZeroAttemptsStillCalls(t *testing.T) {
	mock := NewMockProvider(okMatch)
	p := WithRetry(mock, RetryConfig{})
	if _, err := p.Generate(context.Background(), NewRequest("", "casa", matchSchema(), 32)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}
