package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyforge/internal/logging"
)

// GoalCategory is the planner's classification of a goal.
type GoalCategory string

const (
	GoalWriteChapter       GoalCategory = "write-chapter"
	GoalWriteScene         GoalCategory = "write-scene"
	GoalWriteOutline       GoalCategory = "write-outline"
	GoalWriteDialogue      GoalCategory = "write-dialogue"
	GoalCreateCharacter    GoalCategory = "create-character"
	GoalAnalyzeConsistency GoalCategory = "analyze-consistency"
	GoalAnalyzePacing      GoalCategory = "analyze-pacing"
	GoalImprove            GoalCategory = "improve"
	GoalWorldbuilding      GoalCategory = "worldbuilding"
	GoalGeneric            GoalCategory = "generic"
)

// Planner turns a free-form goal into a dependency-ordered task plan.
// Template selection, not general planning: each goal category maps to a
// fixed task template with pre-wired dependency edges, which keeps plans
// predictable and testable.
type Planner struct {
	log *zap.Logger
}

// NewPlanner creates a planner.
func NewPlanner() *Planner {
	return &Planner{log: logging.Named("planner")}
}

// templateStep is one entry of a plan template. Deps index earlier steps.
type templateStep struct {
	Type  TaskType
	Title string
	Deps  []int
}

var templates = map[GoalCategory][]templateStep{
	GoalWriteChapter: {
		{Type: TaskResearchWorldbuilding, Title: "Research worldbuilding"},
		{Type: TaskResearchCharacters, Title: "Research characters"},
		{Type: TaskResearchPlot, Title: "Research plot"},
		{Type: TaskWriteOutline, Title: "Outline the chapter", Deps: []int{0, 1, 2}},
		{Type: TaskWriteChapter, Title: "Write the chapter", Deps: []int{3}},
		{Type: TaskReviewContent, Title: "Review the chapter", Deps: []int{4}},
		{Type: TaskImproveContent, Title: "Apply review feedback", Deps: []int{5}},
	},
	GoalWriteScene: {
		{Type: TaskResearchWorldbuilding, Title: "Research worldbuilding"},
		{Type: TaskResearchCharacters, Title: "Research characters"},
		{Type: TaskWriteScene, Title: "Write the scene", Deps: []int{0, 1}},
		{Type: TaskReviewContent, Title: "Review the scene", Deps: []int{2}},
		{Type: TaskImproveContent, Title: "Apply review feedback", Deps: []int{3}},
	},
	GoalWriteOutline: {
		{Type: TaskResearchWorldbuilding, Title: "Research worldbuilding"},
		{Type: TaskResearchPlot, Title: "Research plot"},
		{Type: TaskWriteOutline, Title: "Write the outline", Deps: []int{0, 1}},
		{Type: TaskReviewContent, Title: "Review the outline", Deps: []int{2}},
	},
	GoalWriteDialogue: {
		{Type: TaskResearchCharacters, Title: "Research characters"},
		{Type: TaskWriteDialogue, Title: "Write the dialogue", Deps: []int{0}},
		{Type: TaskReviewContent, Title: "Review the dialogue", Deps: []int{1}},
		{Type: TaskImproveContent, Title: "Apply review feedback", Deps: []int{2}},
	},
	GoalCreateCharacter: {
		{Type: TaskResearchWorldbuilding, Title: "Research worldbuilding"},
		{Type: TaskResearchCharacters, Title: "Research existing characters"},
		{Type: TaskCreateCharacter, Title: "Create the character", Deps: []int{0, 1}},
		{Type: TaskUpdateKnowledge, Title: "Record character in knowledge base", Deps: []int{2}},
	},
	GoalAnalyzeConsistency: {
		{Type: TaskResearchWorldbuilding, Title: "Gather established facts"},
		{Type: TaskResearchPlot, Title: "Gather plot context"},
		{Type: TaskAnalyzeConsistency, Title: "Check consistency", Deps: []int{0, 1}},
		{Type: TaskSummarize, Title: "Summarize findings", Deps: []int{2}},
	},
	GoalAnalyzePacing: {
		{Type: TaskAnalyzePacing, Title: "Analyze pacing"},
		{Type: TaskSummarize, Title: "Summarize findings", Deps: []int{0}},
	},
	GoalImprove: {
		{Type: TaskReviewContent, Title: "Review the content"},
		{Type: TaskImproveContent, Title: "Improve the content", Deps: []int{0}},
	},
	GoalWorldbuilding: {
		{Type: TaskResearchWorldbuilding, Title: "Research worldbuilding"},
		{Type: TaskExternalSearch, Title: "Search supporting material"},
		{Type: TaskSummarize, Title: "Summarize worldbuilding", Deps: []int{0, 1}},
	},
	// Fallback: research, produce something reviewable, review it.
	GoalGeneric: {
		{Type: TaskResearchWorldbuilding, Title: "Research context"},
		{Type: TaskWriteOutline, Title: "Draft a response", Deps: []int{0}},
		{Type: TaskReviewContent, Title: "Review the draft", Deps: []int{1}},
	},
}

// Plan builds a task plan for the goal. It never fails: unrecognized
// goals get the generic research→write→review template.
func (p *Planner) Plan(goal string, context map[string]any) *TaskPlan {
	category := Classify(goal)
	steps, ok := templates[category]
	if !ok {
		steps = templates[GoalGeneric]
	}

	planID := "plan-" + uuid.New().String()[:8]
	now := time.Now()
	plan := &TaskPlan{
		ID:        planID,
		Goal:      goal,
		Category:  category,
		Context:   context,
		CreatedAt: now,
	}

	// Deterministic per-plan ids keep dependency wiring collision-free.
	ids := make([]string, len(steps))
	for i, step := range steps {
		ids[i] = taskID(planID, i+1)
		deps := make([]string, 0, len(step.Deps))
		for _, d := range step.Deps {
			deps = append(deps, ids[d])
		}
		plan.Tasks = append(plan.Tasks, &Task{
			ID:           ids[i],
			Type:         step.Type,
			Title:        step.Title,
			Description:  step.Title + " for goal: " + goal,
			Parameters:   map[string]any{"goal": goal},
			Dependencies: deps,
			Status:       StatusPending,
			CreatedAt:    now,
		})
	}

	p.log.Debug("plan created",
		zap.String("plan", planID),
		zap.String("category", string(category)),
		zap.Int("tasks", len(plan.Tasks)))
	return plan
}

func taskID(planID string, n int) string {
	return fmt.Sprintf("%s-t%d", planID, n)
}

// Classify buckets a goal by deterministic keyword match: verb first
// (write/analyze/create/improve), refined by target noun.
func Classify(goal string) GoalCategory {
	g := strings.ToLower(goal)

	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(g, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("improve", "revise", "polish", "rewrite", "edit "):
		return GoalImprove
	case has("consistency", "consistent", "contradiction", "continuity"):
		return GoalAnalyzeConsistency
	case has("pacing", "pace", "rhythm"):
		return GoalAnalyzePacing
	case has("character") && has("create", "new", "design", "invent"):
		return GoalCreateCharacter
	case has("worldbuild", "world-build", "lore", "setting"):
		return GoalWorldbuilding
	case has("outline"):
		return GoalWriteOutline
	case has("dialogue", "dialog", "conversation"):
		return GoalWriteDialogue
	case has("scene"):
		return GoalWriteScene
	case has("chapter"):
		return GoalWriteChapter
	case has("write", "draft", "compose"):
		return GoalWriteScene
	default:
		return GoalGeneric
	}
}
