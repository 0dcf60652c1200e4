package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/wordmine/internal/catalog"
)

// Substring credits every catalog entry whose term or translation
// contains the answer text.
type Substring struct {
	lookup catalog.Lookup
	max    int
}

func NewSubstring(lookup catalog.Lookup, maxCandidates int) *Substring {
	return &Substring{lookup: lookup, max: maxCandidates}
}

func (m *Substring) Match(ctx context.Context, text, languagePair string) ([]string, error) {
	needle := strings.TrimSpace(text)
	if needle == "" {
		return nil, nil
	}
	entries, err := m.lookup.Contains(ctx, languagePair, needle, m.max)
	if err != nil {
		return nil, fmt.Errorf("catalog contains %q: %w", needle, err)
	}
	return ids(entries), nil
}
