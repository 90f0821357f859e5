package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUserInputRequired is returned by a handler to signal that the task
// cannot proceed without input from the caller. The executor maps it to
// the needs-user-input status instead of a failure.
var ErrUserInputRequired = errors.New("user input required")

// HandlerFunc produces a task's result given its parameters and the
// results of its dependencies on the blackboard.
type HandlerFunc func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error)

// Registry is the closed map from task type to capability handler,
// built once at startup. Dispatching an unregistered type is a
// programming-error class failure, not a retryable condition.
type Registry struct {
	mu       sync.RWMutex
	handlers map[TaskType]HandlerFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[TaskType]HandlerFunc)}
}

// Register binds a handler to a task type. A nil handler is a wiring
// bug, so it panics the way http.Handle does.
func (r *Registry) Register(t TaskType, h HandlerFunc) {
	if h == nil {
		panic(fmt.Sprintf("registry: nil handler for %s", t))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Handler returns the handler for a task type.
func (r *Registry) Handler(t TaskType) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns the registered task types, sorted.
func (r *Registry) Types() []TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaskType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
