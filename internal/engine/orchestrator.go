package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyforge/internal/generation"
	"storyforge/internal/logging"
	"storyforge/internal/memory"
)

// terminalKinds are the result kinds that count as a plan's final
// artifact. Extraction scans completion order in reverse, so a later
// improved-content result beats the chapter it was derived from.
var terminalKinds = map[string]bool{
	KindImprovedContent: true,
	KindChapter:         true,
	KindScene:           true,
	KindOutline:         true,
}

// InputResolver decides what to do with a task that asked for user
// input. Returning a result completes the task with it; returning nil
// leaves the task waiting (the plan then finishes without it).
type InputResolver func(task *Task) *TaskResult

// AutoResolveInputs is the default unattended policy: complete the task
// with an empty result so the run terminates, and let the response's
// PendingInput list surface the degradation.
func AutoResolveInputs(task *Task) *TaskResult {
	return &TaskResult{Kind: KindUserInput, Content: ""}
}

// OrchestratorConfig configures the goal execution loop.
type OrchestratorConfig struct {
	Planner       *Planner
	Executor      *Executor
	Critic        *Critic
	Generator     generation.Generator
	Memory        *memory.Store  // Optional; outcomes are then not recorded
	MaxIterations int            // Default 3
	ResolveInput  InputResolver  // Default AutoResolveInputs
}

// Orchestrator drives the goal→plan→execute→critique→improve loop. It is
// the outermost failure boundary: nothing above it ever observes a raw
// error or panic from the engine, only a structured AgentResponse.
type Orchestrator struct {
	planner       *Planner
	executor      *Executor
	critic        *Critic
	gen           generation.Generator
	mem           *memory.Store
	maxIterations int
	resolveInput  InputResolver
	log           *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 3
	}
	resolve := cfg.ResolveInput
	if resolve == nil {
		resolve = AutoResolveInputs
	}
	return &Orchestrator{
		planner:       cfg.Planner,
		executor:      cfg.Executor,
		critic:        cfg.Critic,
		gen:           cfg.Generator,
		mem:           cfg.Memory,
		maxIterations: maxIterations,
		resolveInput:  resolve,
		log:           logging.Named("orchestrator"),
	}
}

// Run executes a goal to completion and blocks until done. It never
// returns an error: any failure is folded into the response.
func (o *Orchestrator) Run(ctx context.Context, goal string, goalContext map[string]any) AgentResponse {
	return o.run(ctx, goal, goalContext, nil)
}

// RunStream executes the same algorithm as Run but emits ordered
// progress events instead of returning once at the end. The final
// complete event carries the AgentResponse as Data. The channel closes
// when the run finishes; tasks and critiques appear in exactly the order
// a blocking caller would observe them.
func (o *Orchestrator) RunStream(ctx context.Context, goal string, goalContext map[string]any) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		emit := func(e Event) {
			e.Timestamp = time.Now()
			select {
			case events <- e:
			case <-ctx.Done():
			}
		}
		response := o.run(ctx, goal, goalContext, emit)
		emit(Event{Type: EventComplete, Message: response.FinalArtifact, Data: response})
	}()
	return events
}

// run is the shared loop; emit may be nil for the blocking path.
func (o *Orchestrator) run(ctx context.Context, goal string, goalContext map[string]any, emit func(Event)) (response AgentResponse) {
	start := time.Now()
	if emit == nil {
		emit = func(Event) {}
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("goal execution panicked", zap.Any("panic", r))
			response = AgentResponse{
				Success:       false,
				FinalArtifact: fmt.Sprintf("internal error: %v", r),
				DurationMs:    time.Since(start).Milliseconds(),
			}
		}
	}()

	emit(Event{Type: EventStart, Message: goal})
	emit(Event{Type: EventPlanning})

	plan := o.planner.Plan(goal, goalContext)
	if err := plan.Validate(); err != nil {
		// Only a template-authoring bug can get here.
		o.log.Error("plan failed validation", zap.String("plan", plan.ID), zap.Error(err))
		return AgentResponse{
			Success:       false,
			FinalArtifact: err.Error(),
			DurationMs:    time.Since(start).Milliseconds(),
		}
	}
	emit(Event{Type: EventPlanCreated, Data: plan.Tasks, Message: string(plan.Category)})

	bb := NewBlackboard(plan.Context)
	observe := func(event string, task *Task) {
		emit(Event{Type: event, TaskID: task.ID, Message: task.Title})
	}

	var (
		artifact     string
		artifactKind string
		critique     CritiqueResult
		satisfied    bool
		iterations   int
		pendingInput []string
	)

	for iterations < o.maxIterations {
		iterations++

		if nextRunnable(plan) != nil {
			if err := o.executePass(ctx, plan, bb, observe, &pendingInput); err != nil {
				o.log.Error("execution pass failed", zap.String("plan", plan.ID), zap.Error(err))
				return o.finish(plan, goal, AgentResponse{
					Success:       false,
					FinalArtifact: err.Error(),
					Iterations:    iterations,
					DurationMs:    time.Since(start).Milliseconds(),
					PendingInput:  pendingInput,
				}, bb)
			}
			if a, k := extractFinalArtifact(plan, bb); a != "" {
				artifact, artifactKind = a, k
			}
		}
		// Otherwise the plan is exhausted and artifact already holds the
		// freshest (possibly improved) text: cheap iteration re-critiques
		// it without re-running research or outline tasks.

		if artifact == "" {
			break
		}

		emit(Event{Type: EventReviewing, Message: artifactKind})
		critique = o.critic.Review(ctx, artifact, artifactKind, o.auxContext(goal, bb))
		emit(Event{Type: EventCritique, Message: fmt.Sprintf("score %.1f", critique.Score), Data: critique})

		if critique.Satisfactory {
			satisfied = true
			break
		}
		if iterations < o.maxIterations {
			emit(Event{Type: EventImproving})
			improved, err := o.improve(ctx, artifact, critique)
			if err != nil {
				o.log.Warn("improve step failed; keeping current artifact", zap.Error(err))
			} else {
				artifact = improved
				artifactKind = KindImprovedContent
			}
		}
	}

	snapshot := plan.Snapshot()
	// A failed task means the plan could not fully complete; even a
	// passing critique does not make that run a success.
	response = AgentResponse{
		Success:         satisfied && artifact != "" && snapshot.Failed == 0,
		FinalArtifact:   artifact,
		TasksCompleted:  snapshot.Completed,
		TasksFailed:     snapshot.Failed,
		Iterations:      iterations,
		QualityScore:    critique.Score,
		DurationMs:      time.Since(start).Milliseconds(),
		ArtifactsByKind: artifactsByKind(plan, bb, artifact, artifactKind),
		PendingInput:    pendingInput,
	}
	return o.finish(plan, goal, response, bb)
}

// executePass runs the executor, applying the input-resolution policy
// until no task is left waiting for input (resolving one can unblock
// dependents, so the loop repeats).
func (o *Orchestrator) executePass(ctx context.Context, plan *TaskPlan, bb *Blackboard, observe TaskObserver, pendingInput *[]string) error {
	for {
		if err := o.executor.ExecuteAll(ctx, plan, bb, observe); err != nil {
			return err
		}
		resolved := false
		for _, t := range plan.Tasks {
			if t.Status != StatusNeedsUserInput {
				continue
			}
			result := o.resolveInput(t)
			if result == nil {
				continue
			}
			t.Status = StatusCompleted
			t.Result = result
			t.CompletedAt = time.Now()
			if err := bb.Put(t.ID, result); err != nil {
				return err
			}
			*pendingInput = append(*pendingInput, t.ID)
			resolved = true
		}
		if !resolved {
			return nil
		}
	}
}

// extractFinalArtifact scans completed tasks in reverse completion order
// for the first terminal-kind result.
func extractFinalArtifact(plan *TaskPlan, bb *Blackboard) (string, string) {
	order := bb.CompletedOrder()
	for i := len(order) - 1; i >= 0; i-- {
		r := bb.Result(order[i])
		if r != nil && terminalKinds[r.Kind] && r.Content != "" {
			return r.Content, r.Kind
		}
	}
	return "", ""
}

// artifactsByKind collects the latest completed result per kind, with the
// loop's current artifact layered on top.
func artifactsByKind(plan *TaskPlan, bb *Blackboard, artifact, artifactKind string) map[string]string {
	out := make(map[string]string)
	for _, id := range bb.CompletedOrder() {
		if r := bb.Result(id); r != nil && r.Content != "" {
			out[r.Kind] = r.Content
		}
	}
	if artifact != "" && artifactKind != "" {
		out[artifactKind] = artifact
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// auxContext assembles domain context for the critic from research
// results already on the blackboard.
func (o *Orchestrator) auxContext(goal string, bb *Blackboard) map[string]string {
	aux := map[string]string{"goal": goal}
	for _, id := range bb.CompletedOrder() {
		r := bb.Result(id)
		if r == nil {
			continue
		}
		switch r.Kind {
		case KindWorldbuildingResearch, KindCharacterResearch, KindPlotResearch:
			if r.Content != "" {
				aux[r.Kind] = r.Content
			}
		}
	}
	return aux
}

// improve asks the generation service to revise the artifact using the
// critique's top issues and recommendations as the edit instruction. It
// mutates the artifact, not the plan.
func (o *Orchestrator) improve(ctx context.Context, artifact string, critique CritiqueResult) (string, error) {
	var b strings.Builder
	b.WriteString("Revise the text to address these issues:\n")
	for i, item := range critique.Items {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "- [%s/%s] %s\n", item.Category, item.Severity, item.Issue)
	}
	for i, rec := range critique.Recommendations {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	if critique.Summary != "" {
		fmt.Fprintf(&b, "\nReviewer summary: %s\n", critique.Summary)
	}
	fmt.Fprintf(&b, "\nText:\n%s", artifact)

	return o.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You are a skilled fiction editor. Output only the revised text."},
			{Role: generation.RoleUser, Content: b.String()},
		},
	})
}

// finish records the outcome in memory and returns the response.
func (o *Orchestrator) finish(plan *TaskPlan, goal string, response AgentResponse, bb *Blackboard) AgentResponse {
	if o.mem != nil {
		outcome, err := json.Marshal(map[string]any{
			"goal":       goal,
			"success":    response.Success,
			"iterations": response.Iterations,
			"score":      response.QualityScore,
		})
		if err == nil {
			if _, err := o.mem.Store("completed-goal", string(outcome), 0.7); err != nil {
				o.log.Warn("failed to record outcome", zap.Error(err))
			}
		}
	}
	o.log.Info("goal finished",
		zap.String("plan", plan.ID),
		zap.Bool("success", response.Success),
		zap.Int("iterations", response.Iterations),
		zap.Float64("score", response.QualityScore),
		zap.Int("failed", response.TasksFailed))
	return response
}
