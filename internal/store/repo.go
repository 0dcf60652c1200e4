package store

import (
	"context"
	"time"

	"github.com/abhisek/wordmine/internal/gems"
)

// Session is a persisted play session. Rows are immutable once written.
type Session struct {
	ID                    string    `json:"id" db:"id"`
	ClientSessionID       string    `json:"sessionId" db:"client_session_id"`
	StudentID             string    `json:"studentId" db:"student_id"`
	AssignmentID          *string   `json:"assignmentId,omitempty" db:"assignment_id"`
	SessionType           string    `json:"sessionType" db:"session_type"`
	LanguagePair          string    `json:"languagePair" db:"language_pair"`
	DifficultyLevel       string    `json:"difficultyLevel" db:"difficulty_level"`
	TotalSentences        int       `json:"totalSentences" db:"total_sentences"`
	CompletedSentences    int       `json:"completedSentences" db:"completed_sentences"`
	TotalSegments         int       `json:"totalSegments" db:"total_segments"`
	CorrectSegments       int       `json:"correctSegments" db:"correct_segments"`
	IncorrectSegments     int       `json:"incorrectSegments" db:"incorrect_segments"`
	FinalScore            float64   `json:"finalScore" db:"final_score"`
	GemsCollected         float64   `json:"gemsCollected" db:"gems_collected"`
	SpeedBoostsUsed       float64   `json:"speedBoostsUsed" db:"speed_boosts_used"`
	Accuracy              int       `json:"accuracy" db:"accuracy"`
	AverageResponseTimeMs int       `json:"averageResponseTimeMs" db:"average_response_time_ms"`
	AttemptCount          int       `json:"attemptCount" db:"attempt_count"`
	EndedAt               time.Time `json:"endedAt" db:"ended_at"`
	CreatedAt             time.Time `json:"createdAt" db:"created_at"`
}

// SegmentAttempt is a single answer within a session.
type SegmentAttempt struct {
	SessionID        string `json:"-" db:"session_id"`
	SegmentID        string `json:"segmentId" db:"segment_id"`
	SelectedOptionID string `json:"selectedOptionId" db:"selected_option_id"`
	IsCorrect        bool   `json:"isCorrect" db:"is_correct"`
	ResponseTimeMs   int    `json:"responseTime" db:"response_time_ms"`
	GemsEarned       int    `json:"gemsEarned" db:"gems_earned"`
	AttemptOrder     int    `json:"attemptOrder" db:"attempt_order"`
}

// SessionQuery filters session listings.
type SessionQuery struct {
	StudentID    string
	AssignmentID string // empty = any
	Limit        int
}

// SessionRepo persists play sessions.
type SessionRepo interface {
	// Insert writes sess in its own transaction. When a session with the
	// same client session id already exists, nothing is written and the
	// stored row is returned with inserted=false.
	Insert(ctx context.Context, sess *Session) (stored *Session, inserted bool, err error)

	// InsertAttempts writes the attempts of one session in one transaction.
	InsertAttempts(ctx context.Context, sessionID string, attempts []SegmentAttempt) error

	// Attempts returns a session's attempts in attempt order.
	Attempts(ctx context.Context, sessionID string) ([]SegmentAttempt, error)

	// List returns a student's sessions, newest first.
	List(ctx context.Context, q SessionQuery) ([]Session, error)
}

// DueCount is the number of items due for one student.
type DueCount struct {
	StudentID string `db:"student_id"`
	Count     int    `db:"due"`
}

// GemRepo persists the mastery ledger. Writes are compare-and-swap on the
// record version; callers own the retry loop.
type GemRepo interface {
	// Get returns the record for (studentID, vocabularyItemID) or ErrNotFound.
	Get(ctx context.Context, studentID, vocabularyItemID string) (*gems.Record, error)

	// Create inserts rec unless a record for the same key exists, in which
	// case created is false and nothing is written.
	Create(ctx context.Context, rec *gems.Record) (created bool, err error)

	// Swap replaces the stored record with rec if the stored version still
	// equals expectedVersion. swapped is false when another writer won.
	Swap(ctx context.Context, rec *gems.Record, expectedVersion int64) (swapped bool, err error)

	// Collection returns a student's records, most recently encountered first.
	Collection(ctx context.Context, studentID string, limit int) ([]gems.Record, error)

	// Due returns a student's records due at or before now, soonest first.
	Due(ctx context.Context, studentID string, now time.Time, limit int) ([]gems.Record, error)

	// DueCounts returns per-student counts of items due at or before now.
	DueCounts(ctx context.Context, now time.Time) ([]DueCount, error)
}

// Progress status values.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// AssignmentProgress is the per-(assignment, student) rollup.
type AssignmentProgress struct {
	AssignmentID     string          `json:"assignmentId" db:"assignment_id"`
	StudentID        string          `json:"studentId" db:"student_id"`
	Score            float64         `json:"score" db:"score"`
	Accuracy         float64         `json:"accuracy" db:"accuracy"`
	Attempts         int             `json:"attempts" db:"attempts"`
	TimeSpentSeconds int             `json:"timeSpentSeconds" db:"time_spent_seconds"`
	Metrics          ProgressMetrics `json:"metrics" db:"metrics"`
	Status           string          `json:"status" db:"status"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// ProgressRepo persists assignment rollups.
type ProgressRepo interface {
	// Upsert merges p into the stored row in one statement. A completed
	// row stays completed and keeps its original completion time.
	Upsert(ctx context.Context, p *AssignmentProgress) (*AssignmentProgress, error)

	// Get returns the row for (assignmentID, studentID) or ErrNotFound.
	Get(ctx context.Context, assignmentID, studentID string) (*AssignmentProgress, error)
}

// VocabularyItem is a catalog entry.
type VocabularyItem struct {
	ID           string `json:"id" db:"id"`
	LanguagePair string `json:"languagePair" db:"language_pair"`
	Term         string `json:"term" db:"term"`
	Translation  string `json:"translation" db:"translation"`
	Difficulty   int    `json:"difficulty" db:"difficulty"`
}

// SegmentOption is the text behind one answer option of a game segment.
type SegmentOption struct {
	SegmentID string `db:"segment_id"`
	OptionID  string `db:"option_id"`
	Text      string `db:"text"`
}

// CatalogRepo reads and seeds the vocabulary catalog.
type CatalogRepo interface {
	// Search returns entries of languagePair whose term or translation
	// contains needle, case-insensitively, in id order.
	Search(ctx context.Context, languagePair, needle string, limit int) ([]VocabularyItem, error)

	// SearchExact returns entries whose lower-cased term or translation
	// equals needle.
	SearchExact(ctx context.Context, languagePair, needle string, limit int) ([]VocabularyItem, error)

	// Item returns one entry or ErrNotFound.
	Item(ctx context.Context, id string) (*VocabularyItem, error)

	// OptionText returns the text of an answer option or ErrNotFound.
	OptionText(ctx context.Context, segmentID, optionID string) (string, error)

	// UpsertItem creates or replaces a catalog entry. created reports
	// whether the id was new.
	UpsertItem(ctx context.Context, item VocabularyItem) (created bool, err error)

	// UpsertOption creates or replaces a segment option.
	UpsertOption(ctx context.Context, opt SegmentOption) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID           int       `db:"id"`
	Timestamp    time.Time `db:"timestamp"`
	Provider     string    `db:"provider"`
	Model        string    `db:"model"`
	Purpose      string    `db:"purpose"`
	InputTokens  int       `db:"input_tokens"`
	OutputTokens int       `db:"output_tokens"`
	LatencyMs    int64     `db:"latency_ms"`
	Success      bool      `db:"success"`
	ErrorMessage string    `db:"error_message"`
	RequestBody  string    `db:"request_body"`
	ResponseBody string    `db:"response_body"`
}

// EventRepo records LLM API calls.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// RecentLLMRequests returns the newest events first.
	RecentLLMRequests(ctx context.Context, limit int) ([]LLMRequestEvent, error)
}
