package session

import "math"

// Metrics are the derived figures returned to the client.
type Metrics struct {
	Accuracy            int `json:"accuracy"`
	AverageResponseTime int `json:"averageResponseTime"`
	TotalAttempts       int `json:"totalAttempts"`
}

// Accuracy is the percentage of correct segments, rounded half away from
// zero. Zero segments yield zero.
func Accuracy(correctSegments, totalSegments int) int {
	if totalSegments <= 0 {
		return 0
	}
	return int(math.Round(float64(correctSegments) / float64(totalSegments) * 100))
}

// AverageResponseTime is the mean response time in whole milliseconds.
func AverageResponseTime(attempts []Attempt) int {
	if len(attempts) == 0 {
		return 0
	}
	var sum int64
	for _, a := range attempts {
		sum += int64(a.ResponseTime)
	}
	return int(math.Round(float64(sum) / float64(len(attempts))))
}
