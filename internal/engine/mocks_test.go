package engine

import (
	"context"
	"fmt"
	"sync"

	"storyforge/internal/generation"
	"storyforge/internal/retrieval"
)

// stubGenerator returns scripted responses in order, then repeats the
// last one. A nil script means every call fails.
type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *stubGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, m := range req.Messages {
		if m.Role == generation.RoleUser {
			s.prompts = append(s.prompts, m.Content)
		}
	}
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubRetriever serves canned snippets and records indexed documents.
type stubRetriever struct {
	mu       sync.Mutex
	snippets []retrieval.Snippet
	indexed  []retrieval.Document
	err      error
}

func (s *stubRetriever) Search(ctx context.Context, q retrieval.Query) ([]retrieval.Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	limit := q.Limit
	if limit <= 0 || limit > len(s.snippets) {
		limit = len(s.snippets)
	}
	return s.snippets[:limit], nil
}

func (s *stubRetriever) Index(ctx context.Context, docs []retrieval.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.indexed = append(s.indexed, docs...)
	return nil
}

// fixedHandler returns a constant result.
func fixedHandler(kind, content string) HandlerFunc {
	return func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
		return &TaskResult{Kind: kind, Content: content}, nil
	}
}

// failingHandler always errors.
func failingHandler(msg string) HandlerFunc {
	return func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
		return nil, fmt.Errorf("%s", msg)
	}
}

// stubRegistry registers fixed-text handlers for every type the chapter
// template uses, overridable per type.
func stubRegistry(overrides map[TaskType]HandlerFunc) *Registry {
	reg := NewRegistry()
	defaults := map[TaskType]HandlerFunc{
		TaskResearchWorldbuilding: fixedHandler(KindWorldbuildingResearch, "the city floats"),
		TaskResearchCharacters:    fixedHandler(KindCharacterResearch, "Mara is stubborn"),
		TaskResearchPlot:          fixedHandler(KindPlotResearch, "the heist goes wrong"),
		TaskWriteOutline:          fixedHandler(KindOutline, "1. setup 2. heist 3. fallout"),
		TaskWriteChapter:          fixedHandler(KindChapter, "Chapter text."),
		TaskWriteScene:            fixedHandler(KindScene, "Scene text."),
		TaskWriteDialogue:         fixedHandler(KindDialogue, "\"Go,\" she said."),
		TaskReviewContent:         fixedHandler(KindReview, "- pacing is rushed"),
		TaskImproveContent:        fixedHandler(KindImprovedContent, "Improved chapter text."),
		TaskFixInconsistency:      fixedHandler(KindImprovedContent, "Fixed text."),
		TaskAnalyzeConsistency:    fixedHandler(KindConsistencyReport, "- no issues"),
		TaskAnalyzePacing:         fixedHandler(KindPacingReport, "- even pacing"),
		TaskCreateCharacter:       fixedHandler(KindCharacterProfile, "Name: Joss"),
		TaskUpdateKnowledge:       fixedHandler(KindKnowledgeUpdate, "recorded"),
		TaskTrackThread:           fixedHandler(KindThread, "the missing key"),
		TaskSummarize:             fixedHandler(KindSummary, "summary"),
		TaskExternalSearch:        fixedHandler(KindSearchResults, "results"),
		TaskAwaitUserInput: func(ctx context.Context, task *Task, bb *Blackboard) (*TaskResult, error) {
			return nil, ErrUserInputRequired
		},
	}
	for t, h := range overrides {
		defaults[t] = h
	}
	for t, h := range defaults {
		reg.Register(t, h)
	}
	return reg
}

// scriptedCritic builds a critic whose generator returns the given review
// texts in order.
func scriptedCritic(minScore float64, reviews ...string) (*Critic, *stubGenerator) {
	gen := &stubGenerator{responses: reviews}
	return NewCritic(gen, minScore), gen
}
