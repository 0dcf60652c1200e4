package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

var progressSelectColumns = []string{
	"assignment_id", "student_id", "score", "accuracy", "attempts",
	"time_spent_seconds", "metrics", "status", "completed_at", "updated_at",
}

// upsertProgressSQL merges one session into the rollup. Status and
// completion time only move forward; both SQLite and Postgres accept the
// ON CONFLICT ... DO UPDATE form with excluded.* references.
const upsertProgressSQL = `
INSERT INTO assignment_progress
	(assignment_id, student_id, score, accuracy, attempts, time_spent_seconds, metrics, status, completed_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
ON CONFLICT (assignment_id, student_id) DO UPDATE SET
	score = excluded.score,
	accuracy = excluded.accuracy,
	attempts = assignment_progress.attempts + 1,
	time_spent_seconds = excluded.time_spent_seconds,
	metrics = excluded.metrics,
	status = CASE
		WHEN assignment_progress.status = 'completed' THEN 'completed'
		ELSE excluded.status
	END,
	completed_at = CASE
		WHEN assignment_progress.completed_at IS NOT NULL THEN assignment_progress.completed_at
		ELSE excluded.completed_at
	END,
	updated_at = excluded.updated_at`

type progressRepo struct {
	s *Store
}

func (r *progressRepo) Upsert(ctx context.Context, p *AssignmentProgress) (*AssignmentProgress, error) {
	var stored *AssignmentProgress
	err := r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		var completedAt any
		if p.CompletedAt != nil {
			completedAt = p.CompletedAt.UTC()
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(upsertProgressSQL),
			p.AssignmentID, p.StudentID, p.Score, p.Accuracy, p.TimeSpentSeconds,
			p.Metrics, p.Status, completedAt, p.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upsert assignment progress: %w", err)
		}
		stored, err = r.get(ctx, tx, p.AssignmentID, p.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *progressRepo) Get(ctx context.Context, assignmentID, studentID string) (*AssignmentProgress, error) {
	return r.get(ctx, r.s.db, assignmentID, studentID)
}

func (r *progressRepo) get(ctx context.Context, q querier, assignmentID, studentID string) (*AssignmentProgress, error) {
	b := r.s.builder()
	query, args := b.Select(progressSelectColumns...).
		From(b.Table(tableProgress)).
		Where(entsql.And(
			entsql.EQ("assignment_id", assignmentID),
			entsql.EQ("student_id", studentID),
		)).
		Query()
	var p AssignmentProgress
	if err := q.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get assignment progress: %w", err)
	}
	return &p, nil
}
