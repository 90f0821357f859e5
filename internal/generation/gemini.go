package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"storyforge/internal/logging"
)

// GeminiConfig configures the Gemini generation client.
type GeminiConfig struct {
	APIKey        string
	Model         string
	Temperature   float64
	MaxTokens     int
	MaxConcurrent int // In-flight request cap; 0 means 4
}

// GeminiClient implements Generator against the Google GenAI API.
// A weighted semaphore caps concurrent calls so parallel goal
// executions cannot stampede the API quota.
type GeminiClient struct {
	client *genai.Client
	model  string
	temp   float64
	tokens int
	sem    *semaphore.Weighted
	log    *zap.Logger
}

// NewGeminiClient creates a generation client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	tokens := cfg.MaxTokens
	if tokens <= 0 {
		tokens = 8192
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.7
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("generation: create client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		temp:   temp,
		tokens: tokens,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		log:    logging.Named("generation"),
	}, nil
}

// Generate sends the request and returns the raw text response.
// System messages become the system instruction; the rest map to
// user/model turns in order.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleModel:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("generation: request has no user content")
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = c.temp
	}
	tokens := req.MaxTokens
	if tokens <= 0 {
		tokens = c.tokens
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temp)),
		MaxOutputTokens: int32(tokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		c.log.Warn("generate failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("generation: %w", err)
	}

	text := result.Text()
	c.log.Debug("generate ok",
		zap.String("model", c.model),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	if text == "" {
		return "", fmt.Errorf("generation: empty response")
	}
	return text, nil
}
