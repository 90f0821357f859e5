// Package generation defines the language-generation contract the engine
// consumes and its Gemini-backed implementation.
package generation

import "context"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is one turn of a generation request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request carries a full generation call. Zero Temperature/MaxTokens
// fall back to the client defaults.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Generator is the minimal contract the engine's handlers, critic, and
// improve step call. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
