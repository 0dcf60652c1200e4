package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
)

var (
	vocabularyColumnNames   = []string{"id", "language_pair", "term", "translation", "difficulty"}
	vocabularyInsertColumns = slices.Concat(vocabularyColumnNames, []string{"term_fold", "translation_fold"})
)

type catalogRepo struct {
	s *Store
}

// fold is the case folding shared by writes and lookups. Comparing
// pre-folded columns keeps matching identical across SQL dialects.
func fold(s string) string {
	return strings.ToLower(s)
}

func (r *catalogRepo) Search(ctx context.Context, languagePair, needle string, limit int) ([]VocabularyItem, error) {
	needle = fold(needle)
	return r.search(ctx, languagePair, limit, entsql.Or(
		entsql.Contains("term_fold", needle),
		entsql.Contains("translation_fold", needle),
	))
}

func (r *catalogRepo) SearchExact(ctx context.Context, languagePair, needle string, limit int) ([]VocabularyItem, error) {
	needle = fold(needle)
	return r.search(ctx, languagePair, limit, entsql.Or(
		entsql.EQ("term_fold", needle),
		entsql.EQ("translation_fold", needle),
	))
}

func (r *catalogRepo) search(ctx context.Context, languagePair string, limit int, match *entsql.Predicate) ([]VocabularyItem, error) {
	b := r.s.builder()
	sel := b.Select(vocabularyColumnNames...).
		From(b.Table(tableVocabulary)).
		Where(entsql.And(entsql.EQ("language_pair", languagePair), match)).
		OrderBy("id")
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var out []VocabularyItem
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("search vocabulary: %w", err)
	}
	return out, nil
}

func (r *catalogRepo) Item(ctx context.Context, id string) (*VocabularyItem, error) {
	b := r.s.builder()
	query, args := b.Select(vocabularyColumnNames...).
		From(b.Table(tableVocabulary)).
		Where(entsql.EQ("id", id)).
		Query()
	var item VocabularyItem
	if err := r.s.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vocabulary item: %w", err)
	}
	return &item, nil
}

func (r *catalogRepo) OptionText(ctx context.Context, segmentID, optionID string) (string, error) {
	b := r.s.builder()
	query, args := b.Select("text").
		From(b.Table(tableSegmentOptions)).
		Where(entsql.And(
			entsql.EQ("segment_id", segmentID),
			entsql.EQ("option_id", optionID),
		)).
		Query()
	var text string
	if err := r.s.db.GetContext(ctx, &text, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get option text: %w", err)
	}
	return text, nil
}

func (r *catalogRepo) UpsertItem(ctx context.Context, item VocabularyItem) (bool, error) {
	_, err := r.Item(ctx, item.ID)
	created := errors.Is(err, ErrNotFound)
	if err != nil && !created {
		return false, err
	}

	query, args := r.s.builder().Insert(tableVocabulary).
		Columns(vocabularyInsertColumns...).
		Values(item.ID, item.LanguagePair, item.Term, item.Translation, item.Difficulty,
			fold(item.Term), fold(item.Translation)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("upsert vocabulary item %s: %w", item.ID, err)
	}
	return created, nil
}

func (r *catalogRepo) UpsertOption(ctx context.Context, opt SegmentOption) error {
	query, args := r.s.builder().Insert(tableSegmentOptions).
		Columns("segment_id", "option_id", "text").
		Values(opt.SegmentID, opt.OptionID, opt.Text).
		OnConflict(entsql.ConflictColumns("segment_id", "option_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert segment option %s/%s: %w", opt.SegmentID, opt.OptionID, err)
	}
	return nil
}
