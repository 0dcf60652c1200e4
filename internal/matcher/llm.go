package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/llm"
)

// LLM narrows the substring candidates down to the ones the answer
// actually denotes. It never adds ids the substring pass did not find.
type LLM struct {
	candidates Matcher
	lookup     catalog.Lookup
	provider   llm.Provider
	log        logrus.FieldLogger

	MaxTokens   int
	Temperature float64
}

func NewLLM(candidates Matcher, lookup catalog.Lookup, provider llm.Provider, log logrus.FieldLogger) *LLM {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LLM{
		candidates:  candidates,
		lookup:      lookup,
		provider:    provider,
		log:         log,
		MaxTokens:   256,
		Temperature: 0.2,
	}
}

// matchSchema is the structured output the model must produce.
var matchSchema = &llm.Schema{
	Name:        "vocabulary-match",
	Description: "Vocabulary items the answer refers to",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vocabulary_ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "IDs from the candidate list only",
			},
		},
		"required":             []any{"vocabulary_ids"},
		"additionalProperties": false,
	},
}

type matchOutput struct {
	VocabularyIDs []string `json:"vocabulary_ids"`
}

type promptData struct {
	Text         string
	LanguagePair string
	Candidates   []catalog.Entry
}

func (m *LLM) Match(ctx context.Context, text, languagePair string) ([]string, error) {
	candidates, err := m.candidates.Match(ctx, text, languagePair)
	if err != nil || len(candidates) <= 1 {
		return candidates, err
	}

	picked, err := m.pick(ctx, text, languagePair, candidates)
	if err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"text":       text,
			"candidates": len(candidates),
		}).Warn("llm match failed, using substring candidates")
		return candidates, nil
	}
	return picked, nil
}

func (m *LLM) pick(ctx context.Context, text, languagePair string, candidateIDs []string) ([]string, error) {
	entries := make([]catalog.Entry, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		e, err := m.lookup.Item(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load candidate %s: %w", id, err)
		}
		entries = append(entries, *e)
	}

	var buf bytes.Buffer
	if err := matchUserTemplate.Execute(&buf, promptData{Text: text, LanguagePair: languagePair, Candidates: entries}); err != nil {
		return nil, fmt.Errorf("build match prompt: %w", err)
	}

	req := llm.NewRequest(matchSystemPrompt, buf.String(), matchSchema, m.MaxTokens)
	req.Temperature = m.Temperature

	resp, err := m.provider.Generate(llm.WithPurpose(ctx, "vocabulary-match"), req)
	if err != nil {
		return nil, err
	}

	var out matchOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse match response: %w", err)
	}

	// Keep candidate order and drop anything invented.
	chosen := lo.Uniq(out.VocabularyIDs)
	return lo.Filter(candidateIDs, func(id string, _ int) bool {
		return lo.Contains(chosen, id)
	}), nil
}

const matchSystemPrompt = `You grade vocabulary practice. A student picked an answer in a language game. Decide which of the listed vocabulary items the answer is actually an instance of.

Instructions:
- Return only IDs from the candidate list.
- A candidate that merely shares letters with the answer does not count.
- Return an empty list when none apply.`

var matchUserTemplate = template.Must(template.New("match").Parse(`Language pair: {{.LanguagePair}}
Answer: {{.Text}}

Candidates:
{{range .Candidates}}- {{.ID}}: {{.Term}} = {{.Translation}}
{{end}}`))
