package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/wordmine/internal/gems"
)

var gemColumns = []string{
	"student_id", "vocabulary_item_id", "gem_level", "mastery_level",
	"total_encounters", "correct_encounters", "current_streak", "best_streak",
	"first_learned_at", "last_encountered_at", "next_review_at", "interval_days",
	"ease_factor", "difficulty_rating", "version", "updated_at",
}

type gemRepo struct {
	s *Store
}

func (r *gemRepo) Get(ctx context.Context, studentID, vocabularyItemID string) (*gems.Record, error) {
	b := r.s.builder()
	query, args := b.Select(gemColumns...).
		From(b.Table(tableGems)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("vocabulary_item_id", vocabularyItemID),
		)).
		Query()
	var rec gems.Record
	if err := r.s.db.GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get gem record: %w", err)
	}
	return &rec, nil
}

func (r *gemRepo) Create(ctx context.Context, rec *gems.Record) (bool, error) {
	now := time.Now().UTC()
	query, args := r.s.builder().Insert(tableGems).
		Columns(gemColumns...).
		Values(
			rec.StudentID, rec.VocabularyItemID, rec.GemLevel, rec.MasteryLevel,
			rec.TotalEncounters, rec.CorrectEncounters, rec.CurrentStreak, rec.BestStreak,
			rec.FirstLearnedAt.UTC(), rec.LastEncounteredAt.UTC(), rec.NextReviewAt.UTC(), rec.IntervalDays,
			rec.EaseFactor, rec.DifficultyRating, rec.Version, now,
		).
		OnConflict(entsql.ConflictColumns("student_id", "vocabulary_item_id"), entsql.DoNothing()).
		Query()
	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("create gem record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create gem record: %w", err)
	}
	return n == 1, nil
}

func (r *gemRepo) Swap(ctx context.Context, rec *gems.Record, expectedVersion int64) (bool, error) {
	query, args := r.s.builder().Update(tableGems).
		Set("gem_level", rec.GemLevel).
		Set("mastery_level", rec.MasteryLevel).
		Set("total_encounters", rec.TotalEncounters).
		Set("correct_encounters", rec.CorrectEncounters).
		Set("current_streak", rec.CurrentStreak).
		Set("best_streak", rec.BestStreak).
		Set("last_encountered_at", rec.LastEncounteredAt.UTC()).
		Set("next_review_at", rec.NextReviewAt.UTC()).
		Set("interval_days", rec.IntervalDays).
		Set("ease_factor", rec.EaseFactor).
		Set("version", rec.Version).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.And(
			entsql.EQ("student_id", rec.StudentID),
			entsql.EQ("vocabulary_item_id", rec.VocabularyItemID),
			entsql.EQ("version", expectedVersion),
		)).
		Query()
	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("swap gem record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap gem record: %w", err)
	}
	return n == 1, nil
}

func (r *gemRepo) Collection(ctx context.Context, studentID string, limit int) ([]gems.Record, error) {
	b := r.s.builder()
	sel := b.Select(gemColumns...).
		From(b.Table(tableGems)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy(entsql.Desc("last_encountered_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var out []gems.Record
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list gem collection: %w", err)
	}
	return out, nil
}

func (r *gemRepo) Due(ctx context.Context, studentID string, now time.Time, limit int) ([]gems.Record, error) {
	b := r.s.builder()
	sel := b.Select(gemColumns...).
		From(b.Table(tableGems)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.LTE("next_review_at", now.UTC()),
		)).
		OrderBy(entsql.Asc("next_review_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	var out []gems.Record
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}
	return out, nil
}

func (r *gemRepo) DueCounts(ctx context.Context, now time.Time) ([]DueCount, error) {
	b := r.s.builder()
	query, args := b.Select("student_id", entsql.As(entsql.Count("*"), "due")).
		From(b.Table(tableGems)).
		Where(entsql.LTE("next_review_at", now.UTC())).
		GroupBy("student_id").
		OrderBy("student_id").
		Query()

	var out []DueCount
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("count due items: %w", err)
	}
	return out, nil
}
