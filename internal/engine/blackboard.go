package engine

import (
	"fmt"
	"sync"
)

// Blackboard is the shared context tasks pass results through. Each task
// id owns exactly one slot and a slot is written exactly once, so replay
// is deterministic and independent tasks could run concurrently without
// write races. It also records completion order, which the artifact
// extractor uses to break ties between terminal results.
type Blackboard struct {
	mu        sync.RWMutex
	results   map[string]*TaskResult
	completed []string       // Task ids in completion order
	values    map[string]any // Caller-supplied plan context, read-only
}

// NewBlackboard creates a blackboard seeded with the plan context.
func NewBlackboard(values map[string]any) *Blackboard {
	return &Blackboard{
		results: make(map[string]*TaskResult),
		values:  values,
	}
}

// Put writes the result slot for taskID. Writing a slot twice is a
// programming error.
func (b *Blackboard) Put(taskID string, result *TaskResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.results[taskID]; exists {
		return fmt.Errorf("blackboard slot %s already written", taskID)
	}
	b.results[taskID] = result
	b.completed = append(b.completed, taskID)
	return nil
}

// Result returns the result slot for taskID, or nil.
func (b *Blackboard) Result(taskID string) *TaskResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.results[taskID]
}

// CompletedOrder returns task ids in the order their results were written.
func (b *Blackboard) CompletedOrder() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.completed))
	copy(out, b.completed)
	return out
}

// Value returns a caller-supplied context value.
func (b *Blackboard) Value(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// DependencyResults collects the results of a task's declared
// dependencies, keyed by result kind (later dependencies win on kind
// collisions). Handlers read their inputs through this and never touch
// another task's slot.
func (b *Blackboard) DependencyResults(task *Task) map[string]*TaskResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]*TaskResult, len(task.Dependencies))
	for _, dep := range task.Dependencies {
		if r := b.results[dep]; r != nil {
			out[r.Kind] = r
		}
	}
	return out
}
