package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storyforge/internal/logging"
)

// TaskObserver is notified as tasks start and finish. Used by the
// streaming entry point; nil observers are fine.
type TaskObserver func(event string, task *Task)

// Executor walks a task plan, dispatching runnable tasks through the
// capability registry and writing results to the blackboard. Execution
// is cooperative and sequential: one task at a time, suspension only at
// handler invocation boundaries.
type Executor struct {
	registry *Registry
	log      *zap.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry, log: logging.Named("executor")}
}

// runnable reports whether a task is pending with every dependency completed.
func runnable(plan *TaskPlan, t *Task) bool {
	if t.Status != StatusPending {
		return false
	}
	for _, dep := range t.Dependencies {
		d := plan.Task(dep)
		if d == nil || d.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// nextRunnable returns the first runnable task in plan order, or nil.
func nextRunnable(plan *TaskPlan) *Task {
	for _, t := range plan.Tasks {
		if runnable(plan, t) {
			return t
		}
	}
	return nil
}

// Execute dispatches a single task and transitions its status. A handler
// failure is recorded on the task and does not propagate; only an
// unregistered task type returns an error, since that is a bug in the
// registry wiring rather than an execution outcome.
func (e *Executor) Execute(ctx context.Context, plan *TaskPlan, task *Task, bb *Blackboard) error {
	handler, ok := e.registry.Handler(task.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
	}

	task.Status = StatusInProgress
	e.log.Debug("task start", zap.String("task", task.ID), zap.String("type", string(task.Type)))

	result, err := handler(ctx, task, bb)
	switch {
	case errors.Is(err, ErrUserInputRequired):
		task.Status = StatusNeedsUserInput
		e.log.Info("task needs user input", zap.String("task", task.ID))
	case err != nil:
		task.Status = StatusFailed
		task.Error = err.Error()
		e.log.Warn("task failed", zap.String("task", task.ID), zap.Error(err))
	default:
		task.Status = StatusCompleted
		task.Result = result
		task.CompletedAt = time.Now()
		if putErr := bb.Put(task.ID, result); putErr != nil {
			// Double-write means the same task ran twice; treat as fatal.
			return putErr
		}
		e.log.Debug("task completed", zap.String("task", task.ID), zap.String("kind", result.Kind))
	}
	return nil
}

// ExecuteAll loops until no runnable task remains: either every task is
// completed, or the rest are failed, awaiting input, or permanently
// blocked behind a failure. Each completed task bounds the loop, so it
// terminates in at most len(plan.Tasks) dispatches. Cancellation takes
// effect at the loop boundary; an in-flight handler is never interrupted
// by the executor itself.
func (e *Executor) ExecuteAll(ctx context.Context, plan *TaskPlan, bb *Blackboard, observe TaskObserver) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := nextRunnable(plan)
		if task == nil {
			return nil
		}
		if observe != nil {
			observe(EventTaskStart, task)
		}
		if err := e.Execute(ctx, plan, task, bb); err != nil {
			return err
		}
		if observe != nil {
			observe(EventTaskComplete, task)
		}
	}
}
