package mastery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/wordmine/internal/backoff"
	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/gems"
	"github.com/abhisek/wordmine/internal/store"
	"github.com/abhisek/wordmine/internal/store/storetest"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock(ts *time.Time) func() time.Time {
	return func() time.Time { return *ts }
}

func testConfig() Config {
	return Config{
		MaxRetries: 200,
		Backoff:    backoff.Config{InitialWait: 100 * time.Microsecond, MaxWait: 2 * time.Millisecond, Multiplier: 2},
	}
}

func TestRecordCorrectEncounter_FirstEncounter(t *testing.T) {
	s := storetest.Open(t)
	now := t0
	cat := catalog.NewStatic(catalog.Entry{ID: "v1", LanguagePair: "es-en", Term: "casa", Translation: "house", Difficulty: 4})
	l := NewLedger(s.Gems(), testConfig(), WithClock(fixedClock(&now)), WithCatalog(cat))

	rec, err := l.RecordCorrectEncounter(context.Background(), "s1", "v1")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.TotalEncounters)
	assert.Equal(t, 1, rec.CorrectEncounters)
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 1, rec.BestStreak)
	assert.Equal(t, 1, rec.GemLevel)
	assert.Equal(t, 0, rec.MasteryLevel)
	assert.Equal(t, 1, rec.IntervalDays)
	assert.Equal(t, 2.5, rec.EaseFactor)
	assert.Equal(t, 4, rec.DifficultyRating)
	assert.True(t, rec.NextReviewAt.Equal(t0.AddDate(0, 0, 1)))

	stored, err := s.Gems().Get(context.Background(), "s1", "v1")
	require.NoError(t, err)
	assert.True(t, stored.FirstLearnedAt.Equal(t0))
	assert.Equal(t, int64(1), stored.Version)
}

func TestRecordCorrectEncounter_Progression(t *testing.T) {
	s := storetest.Open(t)
	now := t0
	l := NewLedger(s.Gems(), testConfig(), WithClock(fixedClock(&now)))
	ctx := context.Background()

	wantIntervals := []int{1, 6, 15, 30, 30}
	var rec *gems.Record
	for i, want := range wantIntervals {
		var err error
		rec, err = l.RecordCorrectEncounter(ctx, "s1", "v1")
		require.NoError(t, err)
		assert.Equal(t, want, rec.IntervalDays, "encounter %d", i+1)
		assert.True(t, rec.NextReviewAt.Equal(now.AddDate(0, 0, want)))
		now = now.Add(24 * time.Hour)
	}

	assert.Equal(t, 5, rec.CorrectEncounters)
	assert.Equal(t, 2, rec.GemLevel)
	assert.Equal(t, 5, rec.BestStreak)
	assert.Equal(t, 2.5, rec.EaseFactor)

	stored, err := s.Gems().Get(ctx, "s1", "v1")
	require.NoError(t, err)
	assert.True(t, stored.FirstLearnedAt.Equal(t0), "first learned stays put")
	assert.Equal(t, int64(5), stored.Version)
}

func TestRecordCorrectEncounter_ConcurrentWritersLoseNothing(t *testing.T) {
	s := storetest.Open(t)
	l := NewLedger(s.Gems(), testConfig())
	ctx := context.Background()

	// k prior encounters.
	const k = 3
	for range k {
		_, err := l.RecordCorrectEncounter(ctx, "s1", "v1")
		require.NoError(t, err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.RecordCorrectEncounter(ctx, "s1", "v1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent encounter failed: %v", err)
	}

	rec, err := s.Gems().Get(ctx, "s1", "v1")
	require.NoError(t, err)
	assert.Equal(t, k+n, rec.CorrectEncounters)
	assert.Equal(t, k+n, rec.TotalEncounters)
	assert.Equal(t, gems.GemLevel(k+n), rec.GemLevel)
	assert.Equal(t, gems.MasteryLevel(k+n), rec.MasteryLevel)
	assert.LessOrEqual(t, rec.IntervalDays, 30)
}

func TestRecordCorrectEncounter_ConcurrentFirstEncounter(t *testing.T) {
	s := storetest.Open(t)
	l := NewLedger(s.Gems(), testConfig())
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordCorrectEncounter(ctx, "s2", "v9")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := s.Gems().Get(ctx, "s2", "v9")
	require.NoError(t, err)
	assert.Equal(t, n, rec.CorrectEncounters)
}

// losingRepo reports every swap as lost.
type losingRepo struct {
	store.GemRepo
	swaps int
}

func (r *losingRepo) Get(context.Context, string, string) (*gems.Record, error) {
	return gems.NewRecord("s1", "v1", 1, t0), nil
}

func (r *losingRepo) Swap(context.Context, *gems.Record, int64) (bool, error) {
	r.swaps++
	return false, nil
}

func TestRecordCorrectEncounter_Contention(t *testing.T) {
	repo := &losingRepo{}
	cfg := testConfig()
	cfg.MaxRetries = 3
	l := NewLedger(repo, cfg)

	_, err := l.RecordCorrectEncounter(context.Background(), "s1", "v1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContention))
	assert.Equal(t, 4, repo.swaps)
}

func TestRecordCorrectEncounter_CancelledWhileBackingOff(t *testing.T) {
	repo := &losingRepo{}
	cfg := Config{MaxRetries: 5, Backoff: backoff.Config{InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1}}
	l := NewLedger(repo, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.RecordCorrectEncounter(ctx, "s1", "v1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, repo.swaps)
}

func TestCollectionAndDue(t *testing.T) {
	s := storetest.Open(t)
	now := t0
	l := NewLedger(s.Gems(), testConfig(), WithClock(fixedClock(&now)))
	ctx := context.Background()

	for _, id := range []string{"v1", "v2", "v3"} {
		_, err := l.RecordCorrectEncounter(ctx, "s1", id)
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}
	_, err := l.RecordCorrectEncounter(ctx, "s2", "v1")
	require.NoError(t, err)

	coll, err := l.Collection(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, coll, 3)
	assert.Equal(t, "v3", coll[0].VocabularyItemID)

	due, err := l.DueForReview(ctx, "s1", t0.AddDate(0, 0, 1).Add(90*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "v1", due[0].VocabularyItemID)
	assert.Equal(t, "v2", due[1].VocabularyItemID)

	due, err = l.DueForReview(ctx, "s1", t0, 0)
	require.NoError(t, err)
	assert.Empty(t, due)
}
