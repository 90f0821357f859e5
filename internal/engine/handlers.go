package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyforge/internal/generation"
	"storyforge/internal/logging"
	"storyforge/internal/memory"
	"storyforge/internal/retrieval"
)

// Capabilities owns the built-in capability handlers and the collaborators
// they call. Register wires every task type into a registry; the closed
// set of types keeps dispatch exhaustive.
type Capabilities struct {
	gen  generation.Generator
	retr retrieval.Retriever
	mem  *memory.Store
	log  *zap.Logger
}

// NewCapabilities creates the handler set. Memory may be nil (thread
// tracking then fails at execution, preference biasing is skipped).
func NewCapabilities(gen generation.Generator, retr retrieval.Retriever, mem *memory.Store) *Capabilities {
	return &Capabilities{gen: gen, retr: retr, mem: mem, log: logging.Named("capabilities")}
}

// Register binds a handler for every task type.
func (c *Capabilities) Register(reg *Registry) {
	reg.Register(TaskResearchWorldbuilding, c.research("worldbuilding", KindWorldbuildingResearch))
	reg.Register(TaskResearchCharacters, c.research("characters", KindCharacterResearch))
	reg.Register(TaskResearchPlot, c.research("plot", KindPlotResearch))
	reg.Register(TaskAnalyzeConsistency, c.analyzeConsistency)
	reg.Register(TaskAnalyzePacing, c.analyzePacing)
	reg.Register(TaskWriteOutline, c.write("outline", KindOutline))
	reg.Register(TaskWriteChapter, c.write("chapter", KindChapter))
	reg.Register(TaskWriteScene, c.write("scene", KindScene))
	reg.Register(TaskWriteDialogue, c.write("dialogue", KindDialogue))
	reg.Register(TaskReviewContent, c.reviewContent)
	reg.Register(TaskImproveContent, c.improveContent)
	reg.Register(TaskFixInconsistency, c.fixInconsistency)
	reg.Register(TaskCreateCharacter, c.createCharacter)
	reg.Register(TaskUpdateKnowledge, c.updateKnowledge)
	reg.Register(TaskTrackThread, c.trackThread)
	reg.Register(TaskSummarize, c.summarize)
	reg.Register(TaskExternalSearch, c.externalSearch)
	reg.Register(TaskAwaitUserInput, c.awaitUserInput)
}

// goalOf returns the task's goal parameter.
func goalOf(task *Task) string {
	if g, ok := task.Parameters["goal"].(string); ok {
		return g
	}
	return task.Description
}

// depContent returns the content of the first dependency result matching
// one of the kinds, in preference order.
func depContent(deps map[string]*TaskResult, kinds ...string) string {
	for _, k := range kinds {
		if r, ok := deps[k]; ok && r.Content != "" {
			return r.Content
		}
	}
	return ""
}

// researchContext joins all research-kind dependency contents.
func researchContext(deps map[string]*TaskResult) string {
	var parts []string
	for _, k := range []string{KindWorldbuildingResearch, KindCharacterResearch, KindPlotResearch} {
		if r, ok := deps[k]; ok && r.Content != "" {
			parts = append(parts, r.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// stylePrefs renders stored style preferences as a prompt fragment.
func (c *Capabilities) stylePrefs() string {
	if c.mem == nil {
		return ""
	}
	prefs, err := c.mem.Preferences("style")
	if err != nil || len(prefs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Style preferences:\n")
	for k, v := range prefs {
		fmt.Fprintf(&b, "- %s: %s\n", k, v)
	}
	return b.String()
}

func (c *Capabilities) research(category, kind string) HandlerFunc {
	return func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
		if c.retr == nil {
			return &TaskResult{Kind: kind, Content: ""}, nil
		}
		series, _ := bb.Value("series")
		seriesName, _ := series.(string)
		snippets, err := c.retr.Search(ctx, retrieval.Query{
			Text:       goalOf(task),
			Categories: []string{category},
			Limit:      5,
			Series:     seriesName,
		})
		if err != nil {
			return nil, fmt.Errorf("research %s: %w", category, err)
		}
		var b strings.Builder
		for _, s := range snippets {
			fmt.Fprintf(&b, "[%s] %s\n%s\n\n", s.Category, s.Title, s.Content)
		}
		return &TaskResult{
			Kind:    kind,
			Content: strings.TrimSpace(b.String()),
			Data:    map[string]any{"count": len(snippets)},
		}, nil
	}
}

func (c *Capabilities) write(form, kind string) HandlerFunc {
	return func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
		deps := bb.DependencyResults(task)
		var b strings.Builder
		fmt.Fprintf(&b, "Write the %s for this goal: %s\n\n", form, goalOf(task))
		if outline := depContent(deps, KindOutline); kind != KindOutline && outline != "" {
			fmt.Fprintf(&b, "Follow this outline:\n%s\n\n", outline)
		}
		if research := researchContext(deps); research != "" {
			fmt.Fprintf(&b, "Use this established context:\n%s\n\n", research)
		}
		if prefs := c.stylePrefs(); prefs != "" {
			b.WriteString(prefs)
		}

		text, err := c.gen.Generate(ctx, generation.Request{
			Messages: []generation.Message{
				{Role: generation.RoleSystem, Content: "You are a skilled fiction writer. Produce only the requested " + form + "."},
				{Role: generation.RoleUser, Content: b.String()},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", form, err)
		}
		return &TaskResult{Kind: kind, Content: text}, nil
	}
}

func (c *Capabilities) reviewContent(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	content := depContent(deps, KindImprovedContent, KindChapter, KindScene, KindDialogue, KindOutline)
	if content == "" {
		if v, ok := bb.Value("content"); ok {
			content, _ = v.(string)
		}
	}
	if content == "" {
		return nil, fmt.Errorf("review: no content to review")
	}

	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You are a critical editor. Review the text for consistency, quality, and flow. List concrete issues as bullet points and end with a short summary."},
			{Role: generation.RoleUser, Content: content},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("review: %w", err)
	}
	// The reviewed content rides along so the improve step has both.
	return &TaskResult{Kind: KindReview, Content: text, Data: map[string]any{"content": content}}, nil
}

func (c *Capabilities) improveContent(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	review, ok := deps[KindReview]
	if !ok {
		return nil, fmt.Errorf("improve: no review to apply")
	}
	content, _ := review.Data["content"].(string)
	if content == "" {
		return nil, fmt.Errorf("improve: review carries no content")
	}

	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You are a skilled fiction editor. Rewrite the text applying the review feedback. Output only the revised text."},
			{Role: generation.RoleUser, Content: fmt.Sprintf("Review feedback:\n%s\n\nText to revise:\n%s", review.Content, content)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("improve: %w", err)
	}
	return &TaskResult{Kind: KindImprovedContent, Content: text}, nil
}

func (c *Capabilities) fixInconsistency(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	report := depContent(deps, KindConsistencyReport)
	content := depContent(deps, KindChapter, KindScene, KindImprovedContent)
	if content == "" {
		if v, ok := bb.Value("content"); ok {
			content, _ = v.(string)
		}
	}
	if report == "" || content == "" {
		return nil, fmt.Errorf("fix: need both a consistency report and content")
	}

	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "Fix only the reported inconsistencies. Change nothing else. Output only the corrected text."},
			{Role: generation.RoleUser, Content: fmt.Sprintf("Inconsistencies:\n%s\n\nText:\n%s", report, content)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("fix: %w", err)
	}
	return &TaskResult{Kind: KindImprovedContent, Content: text}, nil
}

func (c *Capabilities) analyzeConsistency(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	content := goalOf(task)
	if v, ok := bb.Value("content"); ok {
		if s, _ := v.(string); s != "" {
			content = s
		}
	}
	facts := researchContext(deps)

	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You check narrative consistency. Compare the text against the established facts and list every contradiction as a bullet point."},
			{Role: generation.RoleUser, Content: fmt.Sprintf("Established facts:\n%s\n\nText:\n%s", facts, content)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze consistency: %w", err)
	}
	return &TaskResult{Kind: KindConsistencyReport, Content: text}, nil
}

func (c *Capabilities) analyzePacing(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	content := goalOf(task)
	if v, ok := bb.Value("content"); ok {
		if s, _ := v.(string); s != "" {
			content = s
		}
	}
	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You analyze story pacing: scene length, tension curve, rhythm. Report findings as bullet points."},
			{Role: generation.RoleUser, Content: content},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze pacing: %w", err)
	}
	return &TaskResult{Kind: KindPacingReport, Content: text}, nil
}

func (c *Capabilities) createCharacter(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	var b strings.Builder
	fmt.Fprintf(&b, "Create a character for this goal: %s\n\n", goalOf(task))
	if research := researchContext(deps); research != "" {
		fmt.Fprintf(&b, "Fit the character into this world:\n%s\n", research)
	}
	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You design fictional characters: name, role, motivation, flaws, relationships, arc."},
			{Role: generation.RoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}
	return &TaskResult{Kind: KindCharacterProfile, Content: text}, nil
}

func (c *Capabilities) updateKnowledge(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	content := depContent(deps, KindCharacterProfile, KindWorldbuildingResearch, KindSummary)
	if content == "" {
		return nil, fmt.Errorf("update knowledge: nothing to record")
	}
	if c.retr != nil {
		category := "worldbuilding"
		if _, ok := deps[KindCharacterProfile]; ok {
			category = "characters"
		}
		series, _ := bb.Value("series")
		seriesName, _ := series.(string)
		if err := c.retr.Index(ctx, []retrieval.Document{{
			Title:    task.Title,
			Content:  content,
			Category: category,
			Series:   seriesName,
		}}); err != nil {
			return nil, fmt.Errorf("update knowledge: %w", err)
		}
	}
	return &TaskResult{Kind: KindKnowledgeUpdate, Content: content}, nil
}

func (c *Capabilities) trackThread(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	if c.mem == nil {
		return nil, fmt.Errorf("track thread: no memory store")
	}
	title, _ := task.Parameters["title"].(string)
	if title == "" {
		title = goalOf(task)
	}
	desc, _ := task.Parameters["description"].(string)
	position := 0
	if v, ok := task.Parameters["position"].(int); ok {
		position = v
	}
	thread, err := c.mem.CreateThread(memory.PlotThread{
		Title:        title,
		Description:  desc,
		IntroducedAt: position,
	})
	if err != nil {
		return nil, fmt.Errorf("track thread: %w", err)
	}
	return &TaskResult{
		Kind:    KindThread,
		Content: thread.Title,
		Data:    map[string]any{"thread_id": thread.ID},
	}, nil
}

func (c *Capabilities) summarize(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	deps := bb.DependencyResults(task)
	var parts []string
	for _, r := range deps {
		if r.Content != "" {
			parts = append(parts, r.Content)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, goalOf(task))
	}
	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "Summarize the material below in a few short paragraphs."},
			{Role: generation.RoleUser, Content: strings.Join(parts, "\n\n")},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return &TaskResult{Kind: KindSummary, Content: text}, nil
}

func (c *Capabilities) externalSearch(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	if c.retr == nil {
		return &TaskResult{Kind: KindSearchResults, Content: ""}, nil
	}
	snippets, err := c.retr.Search(ctx, retrieval.Query{Text: goalOf(task), Limit: 8})
	if err != nil {
		return nil, fmt.Errorf("external search: %w", err)
	}
	var b strings.Builder
	for _, s := range snippets {
		fmt.Fprintf(&b, "%s (%.2f)\n%s\n\n", s.Title, s.Score, s.Content)
	}
	return &TaskResult{Kind: KindSearchResults, Content: strings.TrimSpace(b.String())}, nil
}

// awaitUserInput resolves immediately without contacting any service.
// The orchestrator's default policy later auto-completes the task so an
// unattended run still terminates.
func (c *Capabilities) awaitUserInput(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
	return nil, ErrUserInputRequired
}
