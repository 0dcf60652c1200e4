package spacedrep

import (
	"math"
	"time"
)

// Interval schedule constants.
const (
	// FirstIntervalDays is the interval after the first correct encounter.
	FirstIntervalDays = 1

	// SecondIntervalDays is the interval after the second correct encounter.
	SecondIntervalDays = 6

	// MaxIntervalDays caps every computed interval.
	MaxIntervalDays = 30

	// DefaultEaseFactor seeds new records.
	DefaultEaseFactor = 2.5

	// MinEaseFactor is the lowest ease factor a record may carry.
	MinEaseFactor = 1.3
)

// NextInterval returns the review interval in days for a record that has
// just reached correctEncounters correct answers. previousInterval is the
// interval the record carried before this encounter.
func NextInterval(correctEncounters, previousInterval int, easeFactor float64) int {
	switch {
	case correctEncounters <= 1:
		return FirstIntervalDays
	case correctEncounters == 2:
		return SecondIntervalDays
	}

	if previousInterval < 1 {
		previousInterval = 1
	}
	next := int(math.Round(float64(previousInterval) * ClampEase(easeFactor)))
	if next > MaxIntervalDays {
		return MaxIntervalDays
	}
	if next < 1 {
		return 1
	}
	return next
}

// NextReviewAt returns now advanced by intervalDays whole days.
func NextReviewAt(now time.Time, intervalDays int) time.Time {
	return now.AddDate(0, 0, intervalDays)
}

// ClampEase applies the ease-factor floor. An unset (zero) ease factor
// is treated as the default.
func ClampEase(f float64) float64 {
	if f == 0 {
		return DefaultEaseFactor
	}
	if f < MinEaseFactor {
		return MinEaseFactor
	}
	return f
}
