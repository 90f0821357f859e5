// Package memory holds cross-invocation state: user preferences learned
// from feedback, open and resolved plot threads, and generic recallable
// records. Backed by SQLite; shared by all goal executions in a process.
package memory

import "time"

// FeedbackOutcome classifies a piece of user feedback.
type FeedbackOutcome string

const (
	OutcomePositive FeedbackOutcome = "positive"
	OutcomeNegative FeedbackOutcome = "negative"
	OutcomeNeutral  FeedbackOutcome = "neutral"
)

// FeedbackStats holds running outcome counts for one task type.
type FeedbackStats struct {
	TaskType string `json:"task_type"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

// FeedbackDetail is one recent detail/outcome pair for a
// (task type, detail key). At most the last 20 are kept.
type FeedbackDetail struct {
	Value     string          `json:"value"`
	Outcome   FeedbackOutcome `json:"outcome"`
	CreatedAt time.Time       `json:"created_at"`
}

// ThreadStatus is the lifecycle state of a plot thread.
type ThreadStatus string

const (
	ThreadOpen      ThreadStatus = "open"
	ThreadResolved  ThreadStatus = "resolved"
	ThreadAbandoned ThreadStatus = "abandoned"
)

// ThreadImportance grades how central a thread is to the narrative.
type ThreadImportance string

const (
	ImportanceLow      ThreadImportance = "low"
	ImportanceMedium   ThreadImportance = "medium"
	ImportanceHigh     ThreadImportance = "high"
	ImportanceCritical ThreadImportance = "critical"
)

// rank orders importances for minimum-importance filtering.
func (i ThreadImportance) rank() int {
	switch i {
	case ImportanceCritical:
		return 3
	case ImportanceHigh:
		return 2
	case ImportanceMedium:
		return 1
	default:
		return 0
	}
}

// PlotThread is a tracked narrative element. IntroducedAt and ResolvedAt
// are position markers (e.g. chapter numbers), not timestamps.
type PlotThread struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Status          ThreadStatus     `json:"status"`
	IntroducedAt    int              `json:"introduced_at"`
	ResolvedAt      int              `json:"resolved_at,omitempty"`
	RelatedEntities []string         `json:"related_entities,omitempty"`
	Importance      ThreadImportance `json:"importance"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Item is a generic recallable record. Recall bumps AccessCount and
// LastAccessed, so recalling reshapes future ranking.
type Item struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	Importance   float64   `json:"importance"` // 0-1
	AccessCount  int       `json:"access_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}
