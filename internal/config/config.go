// Package config loads engine configuration from a YAML file with
// environment-variable overrides for secrets and ad-hoc tuning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the engine and its collaborators.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Memory     MemoryConfig     `yaml:"memory"`
	Engine     EngineConfig     `yaml:"engine"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Debug bool   `yaml:"debug"` // development console encoding
}

// GenerationConfig configures the Gemini generation client.
type GenerationConfig struct {
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	MaxConcurrent int     `yaml:"max_concurrent"` // Cap on in-flight API calls
}

// RetrievalConfig configures the local vector store.
type RetrievalConfig struct {
	Path       string `yaml:"path"`       // Persistence directory ("" = in-memory)
	Collection string `yaml:"collection"` // Collection name
}

// MemoryConfig configures cross-invocation memory persistence.
type MemoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// EngineConfig tunes the orchestration loop.
type EngineConfig struct {
	MaxIterations int     `yaml:"max_iterations"` // Improvement loop bound (default 3)
	MinimumScore  float64 `yaml:"minimum_score"`  // Critique pass threshold (default 7.0)
}

// Default returns the built-in configuration, rooted at dir.
func Default(dir string) Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Generation: GenerationConfig{
			Model:         "gemini-2.5-flash",
			Temperature:   0.7,
			MaxTokens:     8192,
			MaxConcurrent: 4,
		},
		Retrieval: RetrievalConfig{
			Path:       filepath.Join(dir, "knowledge"),
			Collection: "worldbuilding",
		},
		Memory: MemoryConfig{DBPath: filepath.Join(dir, "memory.db")},
		Engine: EngineConfig{MaxIterations: 3, MinimumScore: 7.0},
	}
}

// Load reads the config file at path, layered over Default(dir of path),
// then applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv maps environment variables over the loaded file. The API key
// usually comes from the environment rather than the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("STORYFORGE_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("STORYFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STORYFORGE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxIterations = n
		}
	}
	if v := os.Getenv("STORYFORGE_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.MinimumScore = f
		}
	}
}
