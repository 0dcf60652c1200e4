package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

var sessionColumns = []string{
	"id", "client_session_id", "student_id", "assignment_id", "session_type",
	"language_pair", "difficulty_level", "total_sentences", "completed_sentences",
	"total_segments", "correct_segments", "incorrect_segments", "final_score",
	"gems_collected", "speed_boosts_used", "accuracy", "average_response_time_ms",
	"attempt_count", "ended_at", "created_at",
}

var attemptColumns = []string{
	"session_id", "segment_id", "selected_option_id", "is_correct",
	"response_time_ms", "gems_earned", "attempt_order",
}

type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Insert(ctx context.Context, sess *Session) (*Session, bool, error) {
	var (
		stored   *Session
		inserted bool
	)
	err := r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args := r.s.builder().Insert(tableSessions).
			Columns(sessionColumns...).
			Values(
				sess.ID, sess.ClientSessionID, sess.StudentID, sess.AssignmentID, sess.SessionType,
				sess.LanguagePair, sess.DifficultyLevel, sess.TotalSentences, sess.CompletedSentences,
				sess.TotalSegments, sess.CorrectSegments, sess.IncorrectSegments, sess.FinalScore,
				sess.GemsCollected, sess.SpeedBoostsUsed, sess.Accuracy, sess.AverageResponseTimeMs,
				sess.AttemptCount, sess.EndedAt.UTC(), sess.CreatedAt.UTC(),
			).
			OnConflict(entsql.ConflictColumns("client_session_id"), entsql.DoNothing()).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		if n == 1 {
			inserted = true
			stored = sess
			return nil
		}

		existing, err := r.byClientID(ctx, tx, sess.ClientSessionID)
		if err != nil {
			return err
		}
		stored = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, inserted, nil
}

func (r *sessionRepo) byClientID(ctx context.Context, q querier, clientID string) (*Session, error) {
	b := r.s.builder()
	query, args := b.Select(sessionColumns...).
		From(b.Table(tableSessions)).
		Where(entsql.EQ("client_session_id", clientID)).
		Query()
	var sess Session
	if err := q.GetContext(ctx, &sess, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", clientID, err)
	}
	return &sess, nil
}

// attemptBatchSize rows of seven columns each fit SQLite's default limit of
// 32766 bound variables as well as older builds capped at 999.
const attemptBatchSize = 100

func (r *sessionRepo) InsertAttempts(ctx context.Context, sessionID string, attempts []SegmentAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	return r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		// Chunked so bound parameters stay under the driver limit.
		for _, chunk := range lo.Chunk(attempts, attemptBatchSize) {
			ins := r.s.builder().Insert(tableAttempts).Columns(attemptColumns...)
			for _, a := range chunk {
				ins.Values(sessionID, a.SegmentID, a.SelectedOptionID, a.IsCorrect,
					a.ResponseTimeMs, a.GemsEarned, a.AttemptOrder)
			}
			query, args := ins.Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert %d attempts: %w", len(chunk), err)
			}
		}
		return nil
	})
}

func (r *sessionRepo) Attempts(ctx context.Context, sessionID string) ([]SegmentAttempt, error) {
	b := r.s.builder()
	query, args := b.Select(attemptColumns...).
		From(b.Table(tableAttempts)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Asc("attempt_order")).
		Query()
	var out []SegmentAttempt
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}

func (r *sessionRepo) List(ctx context.Context, q SessionQuery) ([]Session, error) {
	b := r.s.builder()
	preds := []*entsql.Predicate{entsql.EQ("student_id", q.StudentID)}
	if q.AssignmentID != "" {
		preds = append(preds, entsql.EQ("assignment_id", q.AssignmentID))
	}
	sel := b.Select(sessionColumns...).
		From(b.Table(tableSessions)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("ended_at"), entsql.Desc("created_at"))
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}
	query, args := sel.Query()

	var out []Session
	if err := r.s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}
