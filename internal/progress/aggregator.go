// Package progress rolls completed sessions up into per-assignment
// progress rows.
package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/abhisek/wordmine/internal/store"
)

// Aggregator upserts assignment progress.
type Aggregator struct {
	repo store.ProgressRepo
	now  func() time.Time
}

func NewAggregator(repo store.ProgressRepo) *Aggregator {
	return &Aggregator{repo: repo, now: time.Now}
}

// Upsert merges sess into the (assignmentID, studentID) row. The stored
// status never regresses from completed.
func (a *Aggregator) Upsert(ctx context.Context, assignmentID, studentID string, sess *store.Session) (*store.AssignmentProgress, error) {
	row := Rollup(assignmentID, studentID, sess, a.now().UTC())
	stored, err := a.repo.Upsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("upsert assignment progress %s/%s: %w", assignmentID, studentID, err)
	}
	return stored, nil
}

// Rollup computes the row a single session contributes.
func Rollup(assignmentID, studentID string, sess *store.Session, now time.Time) *store.AssignmentProgress {
	row := &store.AssignmentProgress{
		AssignmentID:     assignmentID,
		StudentID:        studentID,
		Score:            sess.FinalScore,
		Accuracy:         clamp01(float64(sess.Accuracy) / 100),
		Attempts:         1,
		TimeSpentSeconds: TimeSpentSeconds(sess.AverageResponseTimeMs, sess.TotalSegments),
		Metrics: store.ProgressMetrics{
			SessionID:             sess.ID,
			TotalSentences:        sess.TotalSentences,
			CompletedSentences:    sess.CompletedSentences,
			TotalSegments:         sess.TotalSegments,
			CorrectSegments:       sess.CorrectSegments,
			IncorrectSegments:     sess.IncorrectSegments,
			GemsCollected:         sess.GemsCollected,
			SpeedBoostsUsed:       sess.SpeedBoostsUsed,
			AverageResponseTimeMs: sess.AverageResponseTimeMs,
		},
		Status:    store.StatusInProgress,
		UpdatedAt: now,
	}
	if sess.CompletedSentences >= sess.TotalSentences {
		row.Status = store.StatusCompleted
		row.CompletedAt = &now
	}
	return row
}

// TimeSpentSeconds estimates play time from the mean response time.
func TimeSpentSeconds(avgResponseMs, totalSegments int) int {
	return int(math.Round(float64(avgResponseMs) * float64(totalSegments) / 1000))
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
