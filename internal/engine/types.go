// Package engine implements the autonomous goal execution engine:
// goal decomposition into a dependency-ordered task plan, capability
// dispatch, quality critique, and the bounded plan→execute→critique→improve
// loop that drives a writing goal to an acceptable artifact.
package engine

import (
	"fmt"
	"time"
)

// TaskType identifies the capability a task is dispatched to.
type TaskType string

const (
	TaskResearchWorldbuilding TaskType = "research-worldbuilding"
	TaskResearchCharacters    TaskType = "research-characters"
	TaskResearchPlot          TaskType = "research-plot"
	TaskAnalyzeConsistency    TaskType = "analyze-consistency"
	TaskAnalyzePacing         TaskType = "analyze-pacing"
	TaskWriteOutline          TaskType = "write-outline"
	TaskWriteChapter          TaskType = "write-chapter"
	TaskWriteScene            TaskType = "write-scene"
	TaskWriteDialogue         TaskType = "write-dialogue"
	TaskReviewContent         TaskType = "review-content"
	TaskImproveContent        TaskType = "improve-content"
	TaskFixInconsistency      TaskType = "fix-inconsistency"
	TaskCreateCharacter       TaskType = "create-character"
	TaskUpdateKnowledge       TaskType = "update-knowledge"
	TaskTrackThread           TaskType = "track-thread"
	TaskSummarize             TaskType = "summarize"
	TaskExternalSearch        TaskType = "external-search"
	TaskAwaitUserInput        TaskType = "await-user-input"
)

// TaskStatus represents the lifecycle state of a task.
// Blocked is not materialized: a pending task with incomplete
// dependencies is blocked by definition.
type TaskStatus string

const (
	StatusPending        TaskStatus = "pending"
	StatusInProgress     TaskStatus = "in-progress"
	StatusCompleted      TaskStatus = "completed"
	StatusFailed         TaskStatus = "failed"
	StatusNeedsUserInput TaskStatus = "needs-user-input"
)

// Result kinds produced by capability handlers. The orchestrator treats
// a subset of these as terminal artifact kinds (see terminalKinds).
const (
	KindOutline               = "outline"
	KindChapter               = "chapter"
	KindScene                 = "scene"
	KindDialogue              = "dialogue"
	KindReview                = "review"
	KindImprovedContent       = "improved-content"
	KindWorldbuildingResearch = "worldbuilding-research"
	KindCharacterResearch     = "character-research"
	KindPlotResearch          = "plot-research"
	KindConsistencyReport     = "consistency-report"
	KindPacingReport          = "pacing-report"
	KindCharacterProfile      = "character-profile"
	KindKnowledgeUpdate       = "knowledge-update"
	KindThread                = "thread"
	KindSummary               = "summary"
	KindSearchResults         = "search-results"
	KindUserInput             = "user-input"
)

// TaskResult is the structured output of a completed task. Kind is the
// discriminator downstream tasks use to locate inputs of the expected shape.
type TaskResult struct {
	Kind    string         `json:"kind"`
	Content string         `json:"content"`
	Data    map[string]any `json:"data,omitempty"`
}

// Task is an atomic unit of work within a plan.
type Task struct {
	ID           string         `json:"id"`
	Type         TaskType       `json:"type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"` // Task IDs that must complete first
	Status       TaskStatus     `json:"status"`
	Result       *TaskResult    `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  time.Time      `json:"completed_at,omitempty"`
}

// TaskPlan owns an ordered list of tasks derived from a single goal.
// It is exclusively owned by one orchestrator invocation.
type TaskPlan struct {
	ID        string         `json:"id"`
	Goal      string         `json:"goal"`
	Category  GoalCategory   `json:"category"`
	Tasks     []*Task        `json:"tasks"`
	Context   map[string]any `json:"context,omitempty"` // Caller-supplied parameters (series, book, length)
	CreatedAt time.Time      `json:"created_at"`
}

// Snapshot summarizes plan progress by status.
type Snapshot struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	Pending        int `json:"pending"`
	NeedsUserInput int `json:"needs_user_input"`
}

// Snapshot counts tasks by status. Aggregate plan state is derived,
// never stored.
func (p *TaskPlan) Snapshot() Snapshot {
	var s Snapshot
	s.Total = len(p.Tasks)
	for _, t := range p.Tasks {
		switch t.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusNeedsUserInput:
			s.NeedsUserInput++
		default:
			s.Pending++
		}
	}
	return s
}

// Task returns the task with the given id, or nil.
func (p *TaskPlan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Validate checks that every dependency references a task in the same plan
// and that the dependency graph is acyclic. The planner only builds
// forward-referencing templates, so a failure here is a template bug.
func (p *TaskPlan) Validate() error {
	ids := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if ids[t.ID] {
			return fmt.Errorf("%w: duplicate task id %s", ErrInvalidPlan, t.ID)
		}
		ids[t.ID] = true
	}
	for _, t := range p.Tasks {
		for _, dep := range t.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("%w: task %s depends on unknown task %s", ErrInvalidPlan, t.ID, dep)
			}
		}
	}
	// Color-marking DFS cycle check.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(p.Tasks))
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, dep := range p.Task(id).Dependencies {
			switch color[dep] {
			case gray:
				return fmt.Errorf("%w: dependency cycle through task %s", ErrCyclicPlan, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}
	for _, t := range p.Tasks {
		if color[t.ID] == white {
			if err := visit(t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// CritiqueCategory classifies a critique finding.
type CritiqueCategory string

const (
	CategoryConsistency CritiqueCategory = "consistency"
	CategoryQuality     CritiqueCategory = "quality"
	CategoryFlow        CritiqueCategory = "flow"
	CategoryCharacter   CritiqueCategory = "character"
	CategoryPlot        CritiqueCategory = "plot"
	CategoryPacing      CritiqueCategory = "pacing"
	CategoryDialogue    CritiqueCategory = "dialogue"
	CategoryDescription CritiqueCategory = "description"
)

// CritiqueSeverity grades how serious a finding is.
type CritiqueSeverity string

const (
	SeverityMinor    CritiqueSeverity = "minor"
	SeverityModerate CritiqueSeverity = "moderate"
	SeverityMajor    CritiqueSeverity = "major"
	SeverityCritical CritiqueSeverity = "critical"
)

// CritiqueItem is a single structured finding from a review.
type CritiqueItem struct {
	Category   CritiqueCategory `json:"category"`
	Severity   CritiqueSeverity `json:"severity"`
	Issue      string           `json:"issue"`
	Suggestion string           `json:"suggestion,omitempty"`
	Location   string           `json:"location,omitempty"`
}

// CritiqueResult is the scored evaluation of an artifact.
// Satisfactory is always computed from Score, never parsed.
type CritiqueResult struct {
	Score           float64        `json:"score"` // 0-10
	Satisfactory    bool           `json:"satisfactory"`
	Items           []CritiqueItem `json:"items,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// AgentResponse is the aggregate result of one goal execution.
type AgentResponse struct {
	Success         bool              `json:"success"`
	FinalArtifact   string            `json:"final_artifact"`
	TasksCompleted  int               `json:"tasks_completed"`
	TasksFailed     int               `json:"tasks_failed"`
	Iterations      int               `json:"iterations"`
	QualityScore    float64           `json:"quality_score"`
	DurationMs      int64             `json:"duration_ms"`
	ArtifactsByKind map[string]string `json:"artifacts_by_kind,omitempty"`
	// PendingInput lists tasks that asked for user input and were
	// auto-resolved with an empty result so the run could finish
	// unattended. A non-empty list means the artifact may be degraded.
	PendingInput []string `json:"pending_input,omitempty"`
}
