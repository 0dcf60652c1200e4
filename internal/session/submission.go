// Package session ingests completed play sessions: it persists the
// session report and credits vocabulary mastery for every correct answer.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Session types.
const (
	TypeFreePlay   = "free_play"
	TypeAssignment = "assignment"
)

// Submission is a completed play session as reported by the game client.
type Submission struct {
	SessionID          string     `json:"sessionId"`
	AssignmentID       string     `json:"assignmentId,omitempty"`
	SessionType        string     `json:"sessionType"`
	LanguagePair       string     `json:"languagePair"`
	DifficultyLevel    string     `json:"difficultyLevel"`
	TotalSentences     int        `json:"totalSentences"`
	CompletedSentences int        `json:"completedSentences"`
	TotalSegments      int        `json:"totalSegments"`
	CorrectSegments    int        `json:"correctSegments"`
	IncorrectSegments  int        `json:"incorrectSegments"`
	FinalScore         float64    `json:"finalScore"`
	GemsCollected      float64    `json:"gemsCollected"`
	SpeedBoostsUsed    float64    `json:"speedBoostsUsed"`
	SegmentAttempts    []Attempt  `json:"segmentAttempts"`
	EndedAt            *time.Time `json:"endedAt,omitempty"`
}

// Attempt is one answered segment. Its position in SegmentAttempts is
// the attempt order.
type Attempt struct {
	SegmentID        string `json:"segmentId"`
	SelectedOptionID string `json:"selectedOptionId"`
	IsCorrect        bool   `json:"isCorrect"`
	ResponseTime     int    `json:"responseTime"`
	GemsEarned       int    `json:"gemsEarned"`
}

// ValidationError reports a malformed submission. Nothing has been
// written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// Validate checks required fields, the session type and counter signs.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return invalid("sessionId", "is required")
	}
	if s.SessionType == "" {
		return invalid("sessionType", "is required")
	}
	if strings.TrimSpace(s.LanguagePair) == "" {
		return invalid("languagePair", "is required")
	}
	switch s.SessionType {
	case TypeFreePlay:
	case TypeAssignment:
		if strings.TrimSpace(s.AssignmentID) == "" {
			return invalid("assignmentId", "is required for assignment sessions")
		}
	default:
		return invalid("sessionType", fmt.Sprintf("must be %q or %q", TypeFreePlay, TypeAssignment))
	}

	counters := []struct {
		name  string
		value float64
	}{
		{"totalSentences", float64(s.TotalSentences)},
		{"completedSentences", float64(s.CompletedSentences)},
		{"totalSegments", float64(s.TotalSegments)},
		{"correctSegments", float64(s.CorrectSegments)},
		{"incorrectSegments", float64(s.IncorrectSegments)},
		{"finalScore", s.FinalScore},
		{"gemsCollected", s.GemsCollected},
		{"speedBoostsUsed", s.SpeedBoostsUsed},
	}
	for _, c := range counters {
		if c.value < 0 {
			return invalid(c.name, "must be non-negative")
		}
	}

	for i, a := range s.SegmentAttempts {
		if a.ResponseTime < 0 {
			return invalid(fmt.Sprintf("segmentAttempts[%d].responseTime", i), "must be non-negative")
		}
		if a.GemsEarned < 0 {
			return invalid(fmt.Sprintf("segmentAttempts[%d].gemsEarned", i), "must be non-negative")
		}
	}
	return nil
}
