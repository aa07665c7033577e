package entity

import (
	"time"

	"github.com/google/uuid"
)

// Verdict represents the outcome of evaluating one query against one document.
type Verdict struct {
	ID          uuid.UUID     `json:"id"`
	Query       string        `json:"query"`
	Source      string        `json:"source"`
	Result      bool          `json:"result"`
	Lookups     int           `json:"lookups"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}
