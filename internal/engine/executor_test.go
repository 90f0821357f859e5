package engine

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteAllCompletesChapterPlan(t *testing.T) {
	plan := NewPlanner().Plan("write chapter 3", nil)
	bb := NewBlackboard(nil)
	exec := NewExecutor(stubRegistry(nil))

	if err := exec.ExecuteAll(context.Background(), plan, bb, nil); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	snap := plan.Snapshot()
	if snap.Completed != snap.Total {
		t.Fatalf("completed %d of %d", snap.Completed, snap.Total)
	}
	if got := len(bb.CompletedOrder()); got != snap.Total {
		t.Fatalf("blackboard recorded %d completions, want %d", got, snap.Total)
	}
}

func TestDependencyOrdering(t *testing.T) {
	plan := NewPlanner().Plan("write chapter 3", nil)
	bb := NewBlackboard(nil)
	exec := NewExecutor(stubRegistry(nil))
	if err := exec.ExecuteAll(context.Background(), plan, bb, nil); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	position := map[string]int{}
	for i, id := range bb.CompletedOrder() {
		position[id] = i
	}
	for _, task := range plan.Tasks {
		for _, dep := range task.Dependencies {
			if position[dep] >= position[task.ID] {
				t.Errorf("task %s completed before its dependency %s", task.ID, dep)
			}
		}
	}
}

func TestFailureBlocksDependentsForever(t *testing.T) {
	plan := NewPlanner().Plan("write chapter 3", nil)
	reg := stubRegistry(map[TaskType]HandlerFunc{
		TaskWriteChapter: failingHandler("generation unavailable"),
	})
	bb := NewBlackboard(nil)
	exec := NewExecutor(reg)

	if err := exec.ExecuteAll(context.Background(), plan, bb, nil); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}

	snap := plan.Snapshot()
	if snap.Failed != 1 {
		t.Fatalf("failed = %d, want 1", snap.Failed)
	}
	for _, task := range plan.Tasks {
		switch task.Type {
		case TaskWriteChapter:
			if task.Status != StatusFailed {
				t.Errorf("write-chapter status = %s", task.Status)
			}
			if task.Error == "" {
				t.Error("failed task has no recorded error")
			}
		case TaskReviewContent, TaskImproveContent:
			if task.Status != StatusPending {
				t.Errorf("%s status = %s, want pending forever", task.Type, task.Status)
			}
		default:
			if task.Status != StatusCompleted {
				t.Errorf("%s status = %s, want completed", task.Type, task.Status)
			}
		}
	}

	// A second pass must terminate immediately and change nothing.
	if err := exec.ExecuteAll(context.Background(), plan, bb, nil); err != nil {
		t.Fatalf("second ExecuteAll: %v", err)
	}
	if got := plan.Snapshot(); got != snap {
		t.Errorf("second pass changed snapshot: %+v -> %+v", snap, got)
	}
}

func TestUnknownTaskTypeIsFatal(t *testing.T) {
	plan := &TaskPlan{ID: "p", Tasks: []*Task{{ID: "p-t1", Type: "no-such-type", Status: StatusPending}}}
	exec := NewExecutor(NewRegistry())
	err := exec.ExecuteAll(context.Background(), plan, NewBlackboard(nil), nil)
	if !errors.Is(err, ErrUnknownTaskType) {
		t.Fatalf("err = %v, want ErrUnknownTaskType", err)
	}
}

func TestAwaitUserInputDoesNotFailPlan(t *testing.T) {
	plan := &TaskPlan{ID: "p", Tasks: []*Task{
		{ID: "p-t1", Type: TaskAwaitUserInput, Status: StatusPending},
		{ID: "p-t2", Type: TaskSummarize, Status: StatusPending},
		{ID: "p-t3", Type: TaskSummarize, Status: StatusPending, Dependencies: []string{"p-t1"}},
	}}
	bb := NewBlackboard(nil)
	exec := NewExecutor(stubRegistry(nil))
	if err := exec.ExecuteAll(context.Background(), plan, bb, nil); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if plan.Tasks[0].Status != StatusNeedsUserInput {
		t.Errorf("await task status = %s", plan.Tasks[0].Status)
	}
	// Sibling still ran; dependent stayed blocked.
	if plan.Tasks[1].Status != StatusCompleted {
		t.Errorf("sibling status = %s, want completed", plan.Tasks[1].Status)
	}
	if plan.Tasks[2].Status != StatusPending {
		t.Errorf("dependent status = %s, want pending", plan.Tasks[2].Status)
	}
}

func TestCancellationStopsAtLoopBoundary(t *testing.T) {
	plan := NewPlanner().Plan("write chapter 3", nil)
	ctx, cancel := context.WithCancel(context.Background())

	started := 0
	reg := stubRegistry(map[TaskType]HandlerFunc{
		TaskResearchWorldbuilding: func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
			started++
			cancel() // Cancellation lands mid-task; the task itself finishes.
			return &TaskResult{Kind: KindWorldbuildingResearch, Content: "x"}, nil
		},
	})
	exec := NewExecutor(reg)

	err := exec.ExecuteAll(ctx, plan, NewBlackboard(nil), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if started != 1 {
		t.Fatalf("started %d tasks, want 1", started)
	}
	// The dispatched task completed; nothing after it started.
	snap := plan.Snapshot()
	if snap.Completed != 1 {
		t.Errorf("completed = %d, want 1", snap.Completed)
	}
}

func TestBlackboardSlotWrittenOnce(t *testing.T) {
	bb := NewBlackboard(nil)
	if err := bb.Put("t1", &TaskResult{Kind: KindOutline, Content: "a"}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := bb.Put("t1", &TaskResult{Kind: KindOutline, Content: "b"}); err == nil {
		t.Fatal("second Put succeeded, want error")
	}
	if got := bb.Result("t1").Content; got != "a" {
		t.Errorf("slot content = %q, want original", got)
	}
}

func TestDependencyResultsOnlyExposeDeclaredDeps(t *testing.T) {
	bb := NewBlackboard(nil)
	bb.Put("dep", &TaskResult{Kind: KindOutline, Content: "outline"})
	bb.Put("other", &TaskResult{Kind: KindChapter, Content: "chapter"})

	task := &Task{ID: "t", Dependencies: []string{"dep"}}
	deps := bb.DependencyResults(task)
	if _, ok := deps[KindChapter]; ok {
		t.Error("task can read a slot it does not depend on")
	}
	if deps[KindOutline] == nil {
		t.Error("task cannot read its declared dependency")
	}
}
