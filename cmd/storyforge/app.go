package main

import (
	"context"
	"fmt"

	"storyforge/internal/engine"
	"storyforge/internal/generation"
	"storyforge/internal/memory"
	"storyforge/internal/retrieval"
)

// app bundles the wired services behind the commands. Memory-only
// commands (threads, feedback, preferences) use openMemory directly so
// they work without an API key.
type app struct {
	mem  *memory.Store
	orch *engine.Orchestrator
}

func openMemory() (*memory.Store, error) {
	return memory.Open(cfg.Memory.DBPath)
}

// newApp wires the full engine: generation client, embedder-backed
// vector store, memory, capability handlers, critic, and orchestrator.
func newApp(ctx context.Context) (*app, error) {
	if cfg.Generation.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set GEMINI_API_KEY or generation.api_key in %s", configPath)
	}

	gen, err := generation.NewGeminiClient(ctx, generation.GeminiConfig{
		APIKey:        cfg.Generation.APIKey,
		Model:         cfg.Generation.Model,
		Temperature:   cfg.Generation.Temperature,
		MaxTokens:     cfg.Generation.MaxTokens,
		MaxConcurrent: cfg.Generation.MaxConcurrent,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := retrieval.NewGenAIEmbedder(ctx, cfg.Generation.APIKey, "")
	if err != nil {
		return nil, err
	}
	retr, err := retrieval.NewChromemStore(cfg.Retrieval.Path, cfg.Retrieval.Collection, embedder)
	if err != nil {
		return nil, err
	}

	mem, err := openMemory()
	if err != nil {
		return nil, err
	}

	registry := engine.NewRegistry()
	engine.NewCapabilities(gen, retr, mem).Register(registry)

	orch := engine.NewOrchestrator(engine.OrchestratorConfig{
		Planner:       engine.NewPlanner(),
		Executor:      engine.NewExecutor(registry),
		Critic:        engine.NewCritic(gen, cfg.Engine.MinimumScore),
		Generator:     gen,
		Memory:        mem,
		MaxIterations: cfg.Engine.MaxIterations,
	})

	return &app{mem: mem, orch: orch}, nil
}

func (a *app) Close() error {
	return a.mem.Close()
}
