package matcher

import (
	"context"
	"fmt"

	"github.com/abhisek/wordmine/internal/catalog"
)

// Exact credits only entries whose term or translation equals the
// normalized answer.
type Exact struct {
	lookup catalog.Lookup
	max    int
}

func NewExact(lookup catalog.Lookup, maxCandidates int) *Exact {
	return &Exact{lookup: lookup, max: maxCandidates}
}

func (m *Exact) Match(ctx context.Context, text, languagePair string) ([]string, error) {
	needle := normalize(text)
	if needle == "" {
		return nil, nil
	}
	entries, err := m.lookup.Equals(ctx, languagePair, needle, m.max)
	if err != nil {
		return nil, fmt.Errorf("catalog equals %q: %w", needle, err)
	}
	return ids(entries), nil
}
