package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ProgressMetrics is the JSON snapshot stored with an assignment rollup.
type ProgressMetrics struct {
	SessionID             string  `json:"sessionId,omitempty"`
	TotalSentences        int     `json:"totalSentences"`
	CompletedSentences    int     `json:"completedSentences"`
	TotalSegments         int     `json:"totalSegments"`
	CorrectSegments       int     `json:"correctSegments"`
	IncorrectSegments     int     `json:"incorrectSegments"`
	GemsCollected         float64 `json:"gemsCollected"`
	SpeedBoostsUsed       float64 `json:"speedBoostsUsed"`
	AverageResponseTimeMs int     `json:"averageResponseTimeMs"`
}

// Value implements driver.Valuer. The snapshot is written as a JSON string
// so that both SQLite text columns and Postgres jsonb accept it.
func (m ProgressMetrics) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *ProgressMetrics) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = ProgressMetrics{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan progress metrics: unsupported type %T", value)
	}
	if len(raw) == 0 {
		*m = ProgressMetrics{}
		return nil
	}
	return json.Unmarshal(raw, m)
}
