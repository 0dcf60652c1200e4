// Package matcher maps the text of a correctly answered game segment to
// the vocabulary items it exercises.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/llm"
)

// Strategy names accepted by New.
const (
	StrategySubstring = "substring"
	StrategyExact     = "exact"
	StrategyLLM       = "llm"
)

// DefaultMaxCandidates bounds how many vocabulary items one answer can
// credit.
const DefaultMaxCandidates = 5

// Matcher resolves answer text to vocabulary item ids. An empty result
// is not an error.
type Matcher interface {
	Match(ctx context.Context, text, languagePair string) ([]string, error)
}

// Config selects and tunes the strategy.
type Config struct {
	Strategy      string `mapstructure:"strategy"`
	MaxCandidates int    `mapstructure:"max_candidates"`
}

// DefaultConfig returns the substring strategy with five candidates.
func DefaultConfig() Config {
	return Config{Strategy: StrategySubstring, MaxCandidates: DefaultMaxCandidates}
}

// New builds the configured Matcher. provider is only required for the
// llm strategy.
func New(cfg Config, lookup catalog.Lookup, provider llm.Provider, log logrus.FieldLogger) (Matcher, error) {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	switch cfg.Strategy {
	case "", StrategySubstring:
		return NewSubstring(lookup, cfg.MaxCandidates), nil
	case StrategyExact:
		return NewExact(lookup, cfg.MaxCandidates), nil
	case StrategyLLM:
		if provider == nil {
			return nil, fmt.Errorf("matcher strategy %q needs an llm provider", cfg.Strategy)
		}
		return NewLLM(NewSubstring(lookup, cfg.MaxCandidates), lookup, provider, log), nil
	default:
		return nil, fmt.Errorf("unknown matcher strategy: %q", cfg.Strategy)
	}
}

// normalize lower-cases text and collapses runs of whitespace.
func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func ids(entries []catalog.Entry) []string {
	return lo.Uniq(lo.Map(entries, func(e catalog.Entry, _ int) string { return e.ID }))
}
