package gems

import (
	"time"

	"github.com/abhisek/wordmine/internal/spacedrep"
)

// Record is a student's mastery state for one vocabulary item.
type Record struct {
	StudentID         string     `json:"studentId" db:"student_id"`
	VocabularyItemID  string     `json:"vocabularyItemId" db:"vocabulary_item_id"`
	GemLevel          int        `json:"gemLevel" db:"gem_level"`
	MasteryLevel      int        `json:"masteryLevel" db:"mastery_level"`
	TotalEncounters   int        `json:"totalEncounters" db:"total_encounters"`
	CorrectEncounters int        `json:"correctEncounters" db:"correct_encounters"`
	CurrentStreak     int        `json:"currentStreak" db:"current_streak"`
	BestStreak        int        `json:"bestStreak" db:"best_streak"`
	FirstLearnedAt    time.Time  `json:"firstLearnedAt" db:"first_learned_at"`
	LastEncounteredAt time.Time  `json:"lastEncounteredAt" db:"last_encountered_at"`
	NextReviewAt      time.Time  `json:"nextReviewAt" db:"next_review_at"`
	IntervalDays      int        `json:"spacedRepetitionInterval" db:"interval_days"`
	EaseFactor        float64    `json:"spacedRepetitionEaseFactor" db:"ease_factor"`
	DifficultyRating  int        `json:"difficultyRating" db:"difficulty_rating"`
	Version           int64      `json:"-" db:"version"`
	UpdatedAt         *time.Time `json:"-" db:"updated_at"`
}

// NewRecord returns the state after a student's first correct encounter
// with an item.
func NewRecord(studentID, vocabularyItemID string, difficulty int, now time.Time) *Record {
	interval := spacedrep.NextInterval(1, 0, spacedrep.DefaultEaseFactor)
	return &Record{
		StudentID:         studentID,
		VocabularyItemID:  vocabularyItemID,
		GemLevel:          GemLevel(1),
		MasteryLevel:      MasteryLevel(1),
		TotalEncounters:   1,
		CorrectEncounters: 1,
		CurrentStreak:     1,
		BestStreak:        1,
		FirstLearnedAt:    now,
		LastEncounteredAt: now,
		NextReviewAt:      spacedrep.NextReviewAt(now, interval),
		IntervalDays:      interval,
		EaseFactor:        spacedrep.DefaultEaseFactor,
		DifficultyRating:  ClampDifficulty(difficulty),
		Version:           1,
	}
}

// CorrectEncounter returns a copy of r advanced by one correct answer at
// now. The receiver is not modified. The ease factor is carried forward
// unchanged apart from the floor.
func (r *Record) CorrectEncounter(now time.Time) *Record {
	next := *r
	next.TotalEncounters++
	next.CorrectEncounters++
	next.CurrentStreak++
	if next.CurrentStreak > next.BestStreak {
		next.BestStreak = next.CurrentStreak
	}
	next.GemLevel = GemLevel(next.CorrectEncounters)
	next.MasteryLevel = MasteryLevel(next.CorrectEncounters)
	next.EaseFactor = spacedrep.ClampEase(r.EaseFactor)
	next.IntervalDays = spacedrep.NextInterval(next.CorrectEncounters, r.IntervalDays, next.EaseFactor)
	next.NextReviewAt = spacedrep.NextReviewAt(now, next.IntervalDays)
	next.LastEncounteredAt = now
	next.Version = r.Version + 1
	return &next
}

// ReviewState returns the scheduling view of the record.
func (r *Record) ReviewState() *spacedrep.ReviewState {
	return &spacedrep.ReviewState{
		VocabularyItemID: r.VocabularyItemID,
		IntervalDays:     r.IntervalDays,
		NextReviewAt:     r.NextReviewAt,
		LastReviewedAt:   r.LastEncounteredAt,
	}
}
