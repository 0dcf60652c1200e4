// Package catalog is the engine's read-only view of the vocabulary
// catalog plus the offline importer that seeds it.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/abhisek/wordmine/internal/store"
)

// Entry is one vocabulary item.
type Entry = store.VocabularyItem

// ErrNotFound is returned when an option or item is unknown.
var ErrNotFound = store.ErrNotFound

// Lookup is the catalog interface consumed by the matcher and collector.
type Lookup interface {
	// Contains returns up to limit entries of languagePair whose term or
	// translation contains text, case-insensitively.
	Contains(ctx context.Context, languagePair, text string, limit int) ([]Entry, error)

	// Equals returns up to limit entries whose term or translation equals
	// text, case-insensitively.
	Equals(ctx context.Context, languagePair, text string, limit int) ([]Entry, error)

	// Item returns a single entry or ErrNotFound.
	Item(ctx context.Context, id string) (*Entry, error)

	// OptionText resolves the text behind a selected answer option.
	OptionText(ctx context.Context, segmentID, optionID string) (string, error)
}

// SQL is a Lookup backed by the store's catalog tables.
type SQL struct {
	repo store.CatalogRepo
}

// NewSQL returns a Lookup over repo.
func NewSQL(repo store.CatalogRepo) *SQL {
	return &SQL{repo: repo}
}

func (c *SQL) Contains(ctx context.Context, languagePair, text string, limit int) ([]Entry, error) {
	return c.repo.Search(ctx, languagePair, text, limit)
}

func (c *SQL) Equals(ctx context.Context, languagePair, text string, limit int) ([]Entry, error) {
	return c.repo.SearchExact(ctx, languagePair, text, limit)
}

func (c *SQL) Item(ctx context.Context, id string) (*Entry, error) {
	return c.repo.Item(ctx, id)
}

func (c *SQL) OptionText(ctx context.Context, segmentID, optionID string) (string, error) {
	return c.repo.OptionText(ctx, segmentID, optionID)
}

// Static is an in-memory Lookup, used by tests and the CLI dry-run paths.
type Static struct {
	mu      sync.RWMutex
	entries []Entry
	options map[[2]string]string
}

// NewStatic returns a Static catalog holding entries.
func NewStatic(entries ...Entry) *Static {
	s := &Static{options: make(map[[2]string]string)}
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add inserts or replaces an entry.
func (s *Static) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == e.ID {
			s.entries[i] = e
			return
		}
	}
	s.entries = append(s.entries, e)
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID < s.entries[j].ID })
}

// AddOption registers the text behind an answer option.
func (s *Static) AddOption(segmentID, optionID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[[2]string{segmentID, optionID}] = text
}

func (s *Static) Contains(_ context.Context, languagePair, text string, limit int) ([]Entry, error) {
	needle := strings.ToLower(text)
	return s.filter(languagePair, limit, func(field string) bool {
		return strings.Contains(strings.ToLower(field), needle)
	}), nil
}

func (s *Static) Equals(_ context.Context, languagePair, text string, limit int) ([]Entry, error) {
	return s.filter(languagePair, limit, func(field string) bool {
		return strings.EqualFold(field, text)
	}), nil
}

func (s *Static) filter(languagePair string, limit int, match func(string) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.LanguagePair != languagePair {
			continue
		}
		if match(e.Term) || match(e.Translation) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func (s *Static) Item(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Static) OptionText(_ context.Context, segmentID, optionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.options[[2]string{segmentID, optionID}]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

// IsNotFound reports whether err means the catalog has no such row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
