// Package retrieval defines the knowledge-retrieval contract consumed by
// the engine's research handlers, backed by an embeddable vector store.
package retrieval

import "context"

// Snippet is one retrieved piece of knowledge.
type Snippet struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Document is a unit of knowledge to index.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"` // worldbuilding, characters, plot, ...
	Series   string `json:"series,omitempty"`
}

// Query scopes a search.
type Query struct {
	Text       string
	Categories []string // Empty means all categories
	Limit      int      // 0 means 5
	Series     string   // Empty means unscoped
}

// Retriever is the contract research handlers call.
type Retriever interface {
	Search(ctx context.Context, q Query) ([]Snippet, error)
	Index(ctx context.Context, docs []Document) error
}
