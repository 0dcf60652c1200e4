package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/llm"
	"github.com/abhisek/wordmine/internal/store/storetest"
)

func testCatalog() *catalog.Static {
	return catalog.NewStatic(
		catalog.Entry{ID: "v1", LanguagePair: "es-en", Term: "casa", Translation: "house"},
		catalog.Entry{ID: "v2", LanguagePair: "es-en", Term: "casado", Translation: "married"},
		catalog.Entry{ID: "v3", LanguagePair: "es-en", Term: "perro", Translation: "dog"},
		catalog.Entry{ID: "v4", LanguagePair: "fr-en", Term: "maison", Translation: "house"},
		catalog.Entry{ID: "v5", LanguagePair: "es-en", Term: "la casa", Translation: "the house"},
	)
}

func TestSubstring(t *testing.T) {
	m := NewSubstring(testCatalog(), DefaultMaxCandidates)
	ctx := context.Background()

	tests := []struct {
		text string
		pair string
		want []string
	}{
		{"casa", "es-en", []string{"v1", "v2", "v5"}},
		{"  HOUSE ", "es-en", []string{"v1", "v5"}},
		{"house", "fr-en", []string{"v4"}},
		{"gato", "es-en", nil},
		{"   ", "es-en", nil},
		{"", "es-en", nil},
	}
	for _, tt := range tests {
		got, err := m.Match(ctx, tt.text, tt.pair)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Match(%q, %q)", tt.text, tt.pair)
	}
}

func TestSubstring_CapsCandidates(t *testing.T) {
	cat := catalog.NewStatic()
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		cat.Add(catalog.Entry{ID: id, LanguagePair: "es-en", Term: "el " + id, Translation: "the " + id})
	}

	got, err := NewSubstring(cat, DefaultMaxCandidates).Match(context.Background(), "el", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestExact(t *testing.T) {
	m := NewExact(testCatalog(), DefaultMaxCandidates)
	ctx := context.Background()

	got, err := m.Match(ctx, "Casa", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, got)

	got, err = m.Match(ctx, "  la   CASA ", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v5"}, got)

	got, err = m.Match(ctx, "cas", "es-en")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLCatalog_AccentedCapitals(t *testing.T) {
	s := storetest.Open(t)
	ctx := context.Background()
	for _, e := range []catalog.Entry{
		{ID: "v1", LanguagePair: "es-en", Term: "Árbol", Translation: "tree", Difficulty: 1},
		{ID: "v2", LanguagePair: "es-en", Term: "el árbol", Translation: "the tree", Difficulty: 1},
		{ID: "v3", LanguagePair: "es-en", Term: "Éxito", Translation: "success", Difficulty: 2},
	} {
		_, err := s.Catalog().UpsertItem(ctx, e)
		require.NoError(t, err)
	}
	lookup := catalog.NewSQL(s.Catalog())

	sub := NewSubstring(lookup, DefaultMaxCandidates)
	got, err := sub.Match(ctx, "ÁRBOL", "es-en")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1", "v2"}, got)

	got, err = sub.Match(ctx, "éxi", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v3"}, got)

	exact := NewExact(lookup, DefaultMaxCandidates)
	got, err = exact.Match(ctx, "árbol", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, got)

	got, err = exact.Match(ctx, "  EL   ÁRBOL ", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, got)
}

type failingLookup struct{ catalog.Lookup }

func (failingLookup) Contains(context.Context, string, string, int) ([]catalog.Entry, error) {
	return nil, errors.New("db down")
}

func TestSubstring_PropagatesLookupError(t *testing.T) {
	_, err := NewSubstring(failingLookup{}, 5).Match(context.Background(), "casa", "es-en")
	assert.Error(t, err)
}

func TestLLM_NarrowsCandidates(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"vocabulary_ids":["v5","v1","v99"]}`),
	})
	cat := testCatalog()
	m := NewLLM(NewSubstring(cat, 5), cat, mock, nil)

	got, err := m.Match(context.Background(), "casa", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v5"}, got, "keeps candidate order and drops invented ids")

	require.Equal(t, 1, mock.CallCount())
	prompt := mock.Calls[0].Prompt
	assert.Contains(t, prompt, "v2: casado = married")
	assert.Equal(t, "vocabulary-match", mock.Calls[0].Schema.Name)
}

func TestLLM_SkipsProviderForSingleCandidate(t *testing.T) {
	mock := llm.NewMockProvider()
	cat := testCatalog()
	m := NewLLM(NewSubstring(cat, 5), cat, mock, nil)

	got, err := m.Match(context.Background(), "perro", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v3"}, got)
	assert.Zero(t, mock.CallCount())
}

func TestLLM_FallsBackOnProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	cat := testCatalog()
	m := NewLLM(NewSubstring(cat, 5), cat, mock, nil)

	got, err := m.Match(context.Background(), "casa", "es-en")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v5"}, got)
}

func TestNew(t *testing.T) {
	cat := testCatalog()

	m, err := New(Config{}, cat, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Substring{}, m)

	m, err = New(Config{Strategy: StrategyExact}, cat, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Exact{}, m)

	_, err = New(Config{Strategy: StrategyLLM}, cat, nil, nil)
	assert.Error(t, err)

	m, err = New(Config{Strategy: StrategyLLM}, cat, llm.NewMockProvider(), nil)
	require.NoError(t, err)
	assert.IsType(t, &LLM{}, m)

	_, err = New(Config{Strategy: "fuzzy"}, cat, nil, nil)
	assert.Error(t, err)
}
