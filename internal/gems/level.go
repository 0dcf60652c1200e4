package gems

// Level caps.
const (
	MaxGemLevel     = 10
	MaxMasteryLevel = 5

	correctPerGemLevel     = 5
	correctPerMasteryLevel = 10
)

// GemLevel returns the gem level (1-10) for a correct-encounter count.
func GemLevel(correct int) int {
	if correct < 0 {
		correct = 0
	}
	return min(MaxGemLevel, correct/correctPerGemLevel+1)
}

// MasteryLevel returns the mastery level (0-5) for a correct-encounter count.
func MasteryLevel(correct int) int {
	if correct < 0 {
		correct = 0
	}
	return min(MaxMasteryLevel, correct/correctPerMasteryLevel)
}

// ClampDifficulty bounds a catalog difficulty into the 1-5 rating range.
// Unknown (zero) difficulty rates as 1.
func ClampDifficulty(d int) int {
	switch {
	case d < 1:
		return 1
	case d > 5:
		return 5
	default:
		return d
	}
}
