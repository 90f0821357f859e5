package engine

import "time"

// Event types emitted by the streaming entry point, in the order a
// blocking caller would observe the same state.
const (
	EventStart        = "start"
	EventPlanning     = "planning"
	EventPlanCreated  = "plan-created"
	EventTaskStart    = "task-start"
	EventTaskComplete = "task-complete"
	EventReviewing    = "reviewing"
	EventCritique     = "critique"
	EventImproving    = "improving"
	EventComplete     = "complete"
)

// Event is one progress notification from a streaming run.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
}
