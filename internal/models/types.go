package models

import (
	"fmt"
	"time"
)

type HealthLevel string

const (
	HealthLevelHealthy   HealthLevel = "healthy"
	HealthLevelDegraded  HealthLevel = "degraded"
	HealthLevelUnhealthy HealthLevel = "unhealthy-or-other"
)

// HealthStatus is the raw status string reported by the backend.
type HealthStatus string

// Level maps the raw status onto the three levels the client distinguishes.
// Anything other than "healthy" or "degraded" counts as unhealthy.
func (s HealthStatus) Level() HealthLevel {
	switch s {
	case "healthy":
		return HealthLevelHealthy
	case "degraded":
		return HealthLevelDegraded
	default:
		return HealthLevelUnhealthy
	}
}

type HealthSnapshot struct {
	Status            HealthStatus `json:"status"`
	Version           string       `json:"version"`
	DatabaseConnected bool         `json:"database_connected"`
	LeanAvailable     bool         `json:"lean_available"`
}

// Request body of POST /find-similar-theorems
type SearchParameters struct {
	Expression string   `json:"expression"`
	K          int      `json:"k"`
	NodeRatio  *float64 `json:"node_ratio,omitempty"`
}

type TheoremResult struct {
	Name            string  `json:"name"`
	SimilarityScore float64 `json:"similarity_score"`
	Statement       string  `json:"statement"`
	NodeCount       int     `json:"node_count"`
}

// ScorePercent renders the similarity score the way results are displayed, e.g. "87.5%".
func (r TheoremResult) ScorePercent() string {
	return fmt.Sprintf("%.1f%%", r.SimilarityScore*100)
}

// Results keep the ranking order returned by the backend.
type SearchResponse struct {
	Success          bool            `json:"success"`
	Results          []TheoremResult `json:"results"`
	TotalProcessed   int             `json:"total_processed"`
	ExpressionParsed string          `json:"expression_parsed"`
}

type SearchOutcome string

const (
	SearchOutcomeSucceeded SearchOutcome = "succeeded"
	SearchOutcomeFailed    SearchOutcome = "failed"
)

// SearchEvent describes one settled search. Emitted to the event stream.
type SearchEvent struct {
	ID          string        `json:"id"`
	Server      string        `json:"server"`
	Expression  string        `json:"expression"`
	K           int           `json:"k"`
	NodeRatio   *float64      `json:"node_ratio,omitempty"`
	Outcome     SearchOutcome `json:"outcome"`
	Message     string        `json:"message,omitempty"`
	ResultCount int           `json:"result_count"`
	DurationMs  int64         `json:"duration_ms"`
	CreatedAt   time.Time     `json:"created_at"`
}
