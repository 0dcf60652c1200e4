package spacedrep

import "time"

// ReviewState is the scheduling view of a single vocabulary item.
type ReviewState struct {
	VocabularyItemID string    `json:"vocabulary_item_id"`
	IntervalDays     int       `json:"interval_days"`
	NextReviewAt     time.Time `json:"next_review_at"`
	LastReviewedAt   time.Time `json:"last_reviewed_at"`
}

// IsDue returns true if the item is due for review (at or past the review time).
func (rs *ReviewState) IsDue(now time.Time) bool {
	return !now.Before(rs.NextReviewAt)
}

// OverdueDays returns how many days past due the item is. Returns 0 if not yet due.
func (rs *ReviewState) OverdueDays(now time.Time) float64 {
	if now.Before(rs.NextReviewAt) {
		return 0
	}
	return now.Sub(rs.NextReviewAt).Hours() / 24.0
}

// IsOverdue reports whether the item has gone unreviewed for more than
// half its interval past the due time.
func (rs *ReviewState) IsOverdue(now time.Time) bool {
	if !rs.IsDue(now) {
		return false
	}
	interval := rs.IntervalDays
	if interval < 1 {
		interval = 1
	}
	graceHours := float64(interval) * 0.5 * 24.0
	threshold := rs.NextReviewAt.Add(time.Duration(graceHours * float64(time.Hour)))
	return now.After(threshold)
}

// ReviewStatus describes an item's review status.
type ReviewStatus string

const (
	ReviewNotDue  ReviewStatus = "not_due"
	ReviewDue     ReviewStatus = "due"
	ReviewOverdue ReviewStatus = "overdue"
)

// Status returns the review status at now.
func (rs *ReviewState) Status(now time.Time) ReviewStatus {
	switch {
	case rs.IsOverdue(now):
		return ReviewOverdue
	case rs.IsDue(now):
		return ReviewDue
	default:
		return ReviewNotDue
	}
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (rs *ReviewState) DaysUntilReview(now time.Time) int {
	if rs.IsDue(now) {
		return 0
	}
	return int(rs.NextReviewAt.Sub(now).Hours()/24.0) + 1
}
