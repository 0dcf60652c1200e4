package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableSessions        = "sessions"
	tableAttempts        = "segment_attempts"
	tableGems            = "gem_collection"
	tableProgress        = "assignment_progress"
	tableVocabulary      = "vocabulary_items"
	tableSegmentOptions  = "segment_options"
	tableLLMRequestEvent = "llm_request_events"
)

var (
	sessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "client_session_id", Type: field.TypeString, Unique: true},
		{Name: "student_id", Type: field.TypeString},
		{Name: "assignment_id", Type: field.TypeString, Nullable: true},
		{Name: "session_type", Type: field.TypeString},
		{Name: "language_pair", Type: field.TypeString},
		{Name: "difficulty_level", Type: field.TypeString, Default: ""},
		{Name: "total_sentences", Type: field.TypeInt, Default: 0},
		{Name: "completed_sentences", Type: field.TypeInt, Default: 0},
		{Name: "total_segments", Type: field.TypeInt, Default: 0},
		{Name: "correct_segments", Type: field.TypeInt, Default: 0},
		{Name: "incorrect_segments", Type: field.TypeInt, Default: 0},
		{Name: "final_score", Type: field.TypeFloat64, Default: 0},
		{Name: "gems_collected", Type: field.TypeFloat64, Default: 0},
		{Name: "speed_boosts_used", Type: field.TypeFloat64, Default: 0},
		{Name: "accuracy", Type: field.TypeInt, Default: 0},
		{Name: "average_response_time_ms", Type: field.TypeInt, Default: 0},
		{Name: "attempt_count", Type: field.TypeInt, Default: 0},
		{Name: "ended_at", Type: field.TypeTime},
		{Name: "created_at", Type: field.TypeTime},
	}
	sessionsTable = &schema.Table{
		Name:       tableSessions,
		Columns:    sessionsColumns,
		PrimaryKey: []*schema.Column{sessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "sessions_student_ended", Columns: []*schema.Column{sessionsColumns[2], sessionsColumns[18]}},
			{Name: "sessions_assignment_student", Columns: []*schema.Column{sessionsColumns[3], sessionsColumns[2]}},
		},
	}

	attemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "session_id", Type: field.TypeString},
		{Name: "segment_id", Type: field.TypeString},
		{Name: "selected_option_id", Type: field.TypeString},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "response_time_ms", Type: field.TypeInt, Default: 0},
		{Name: "gems_earned", Type: field.TypeInt, Default: 0},
		{Name: "attempt_order", Type: field.TypeInt},
	}
	attemptsTable = &schema.Table{
		Name:       tableAttempts,
		Columns:    attemptsColumns,
		PrimaryKey: []*schema.Column{attemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "segment_attempts_session_order", Unique: true, Columns: []*schema.Column{attemptsColumns[1], attemptsColumns[7]}},
		},
	}

	gemsColumns = []*schema.Column{
		{Name: "student_id", Type: field.TypeString},
		{Name: "vocabulary_item_id", Type: field.TypeString},
		{Name: "gem_level", Type: field.TypeInt, Default: 1},
		{Name: "mastery_level", Type: field.TypeInt, Default: 0},
		{Name: "total_encounters", Type: field.TypeInt, Default: 0},
		{Name: "correct_encounters", Type: field.TypeInt, Default: 0},
		{Name: "current_streak", Type: field.TypeInt, Default: 0},
		{Name: "best_streak", Type: field.TypeInt, Default: 0},
		{Name: "first_learned_at", Type: field.TypeTime},
		{Name: "last_encountered_at", Type: field.TypeTime},
		{Name: "next_review_at", Type: field.TypeTime},
		{Name: "interval_days", Type: field.TypeInt, Default: 1},
		{Name: "ease_factor", Type: field.TypeFloat64, Default: 2.5},
		{Name: "difficulty_rating", Type: field.TypeInt, Default: 1},
		{Name: "version", Type: field.TypeInt64, Default: 1},
		{Name: "updated_at", Type: field.TypeTime, Nullable: true},
	}
	gemsTable = &schema.Table{
		Name:       tableGems,
		Columns:    gemsColumns,
		PrimaryKey: []*schema.Column{gemsColumns[0], gemsColumns[1]},
		Indexes: []*schema.Index{
			{Name: "gem_collection_student_next_review", Columns: []*schema.Column{gemsColumns[0], gemsColumns[10]}},
			{Name: "gem_collection_student_last_encountered", Columns: []*schema.Column{gemsColumns[0], gemsColumns[9]}},
		},
	}

	progressColumns = []*schema.Column{
		{Name: "assignment_id", Type: field.TypeString},
		{Name: "student_id", Type: field.TypeString},
		{Name: "score", Type: field.TypeFloat64, Default: 0},
		{Name: "accuracy", Type: field.TypeFloat64, Default: 0},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "time_spent_seconds", Type: field.TypeInt, Default: 0},
		{Name: "metrics", Type: field.TypeJSON, Nullable: true},
		{Name: "status", Type: field.TypeString, Default: "not_started"},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "updated_at", Type: field.TypeTime},
	}
	progressTable = &schema.Table{
		Name:       tableProgress,
		Columns:    progressColumns,
		PrimaryKey: []*schema.Column{progressColumns[0], progressColumns[1]},
	}

	vocabularyColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "language_pair", Type: field.TypeString},
		{Name: "term", Type: field.TypeString},
		{Name: "translation", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeInt, Default: 1},
		// Lower-cased in Go: SQLite's LOWER() only folds ASCII.
		{Name: "term_fold", Type: field.TypeString, Default: ""},
		{Name: "translation_fold", Type: field.TypeString, Default: ""},
	}
	vocabularyTable = &schema.Table{
		Name:       tableVocabulary,
		Columns:    vocabularyColumns,
		PrimaryKey: []*schema.Column{vocabularyColumns[0]},
		Indexes: []*schema.Index{
			{Name: "vocabulary_items_language_pair", Columns: []*schema.Column{vocabularyColumns[1]}},
		},
	}

	segmentOptionsColumns = []*schema.Column{
		{Name: "segment_id", Type: field.TypeString},
		{Name: "option_id", Type: field.TypeString},
		{Name: "text", Type: field.TypeString},
	}
	segmentOptionsTable = &schema.Table{
		Name:       tableSegmentOptions,
		Columns:    segmentOptionsColumns,
		PrimaryKey: []*schema.Column{segmentOptionsColumns[0], segmentOptionsColumns[1]},
	}

	llmEventColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmEventTable = &schema.Table{
		Name:       tableLLMRequestEvent,
		Columns:    llmEventColumns,
		PrimaryKey: []*schema.Column{llmEventColumns[0]},
	}

	// Tables lists every table the store owns, in creation order.
	Tables = []*schema.Table{
		sessionsTable,
		attemptsTable,
		gemsTable,
		progressTable,
		vocabularyTable,
		segmentOptionsTable,
		llmEventTable,
	}
)

// Migrate creates missing tables and columns. It never drops anything.
func (s *Store) Migrate(ctx context.Context) error {
	drv := entsql.OpenDB(s.dialect, s.db.DB)
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return s.backfillFolds(ctx)
}

// backfillFolds fills term_fold/translation_fold for rows written before
// those columns existed.
func (s *Store) backfillFolds(ctx context.Context) error {
	b := s.builder()
	query, args := b.Select(vocabularyColumnNames...).
		From(b.Table(tableVocabulary)).
		Where(entsql.And(entsql.EQ("term_fold", ""), entsql.NEQ("term", ""))).
		Query()
	var stale []VocabularyItem
	if err := s.db.SelectContext(ctx, &stale, query, args...); err != nil {
		return fmt.Errorf("find unfolded vocabulary: %w", err)
	}
	for _, item := range stale {
		query, args := s.builder().Update(tableVocabulary).
			Set("term_fold", fold(item.Term)).
			Set("translation_fold", fold(item.Translation)).
			Where(entsql.EQ("id", item.ID)).
			Query()
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("fold vocabulary item %s: %w", item.ID, err)
		}
	}
	return nil
}
