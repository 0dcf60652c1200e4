package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/wordmine/internal/store"
	"github.com/abhisek/wordmine/internal/store/storetest"
)

func session(completed, total int) *store.Session {
	return &store.Session{
		ID:                    "sess-1",
		FinalScore:            820,
		Accuracy:              85,
		TotalSentences:        total,
		CompletedSentences:    completed,
		TotalSegments:         20,
		CorrectSegments:       17,
		IncorrectSegments:     3,
		GemsCollected:         12,
		SpeedBoostsUsed:       2,
		AverageResponseTimeMs: 1850,
	}
}

func TestRollup(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	row := Rollup("a1", "s1", session(5, 5), now)
	assert.Equal(t, store.StatusCompleted, row.Status)
	require.NotNil(t, row.CompletedAt)
	assert.True(t, row.CompletedAt.Equal(now))
	assert.InDelta(t, 0.85, row.Accuracy, 1e-9)
	assert.Equal(t, 37, row.TimeSpentSeconds)
	assert.Equal(t, 820.0, row.Score)
	assert.Equal(t, 12.0, row.Metrics.GemsCollected)

	row = Rollup("a1", "s1", session(3, 5), now)
	assert.Equal(t, store.StatusInProgress, row.Status)
	assert.Nil(t, row.CompletedAt)
}

func TestTimeSpentSeconds(t *testing.T) {
	assert.Equal(t, 0, TimeSpentSeconds(0, 10))
	assert.Equal(t, 2, TimeSpentSeconds(1500, 1))
	assert.Equal(t, 1, TimeSpentSeconds(1499, 1))
	assert.Equal(t, 0, TimeSpentSeconds(1200, 0))
}

func TestUpsert_StatusNeverRegresses(t *testing.T) {
	s := storetest.Open(t)
	agg := NewAggregator(s.Progress())
	ctx := context.Background()

	first, err := agg.Upsert(ctx, "a1", "s1", session(5, 5))
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)

	replay := session(2, 5)
	replay.FinalScore = 300
	replay.Accuracy = 40
	second, err := agg.Upsert(ctx, "a1", "s1", replay)
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, second.Status)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt))
	assert.Equal(t, 300.0, second.Score, "latest session wins for score")
	assert.InDelta(t, 0.4, second.Accuracy, 1e-9)
	assert.Equal(t, 2, second.Attempts)
	assert.Equal(t, 2, second.Metrics.CompletedSentences)
}

func TestUpsert_InProgressThenCompleted(t *testing.T) {
	s := storetest.Open(t)
	agg := NewAggregator(s.Progress())
	ctx := context.Background()

	row, err := agg.Upsert(ctx, "a2", "s1", session(1, 4))
	require.NoError(t, err)
	assert.Equal(t, store.StatusInProgress, row.Status)
	assert.Nil(t, row.CompletedAt)

	row, err = agg.Upsert(ctx, "a2", "s1", session(4, 4))
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, row.Status)
	assert.NotNil(t, row.CompletedAt)

	other, err := agg.Upsert(ctx, "a2", "s2", session(0, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, other.Attempts)
}
