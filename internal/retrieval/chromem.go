package retrieval

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"storyforge/internal/logging"
)

// Embedder turns text into vectors for indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChromemStore implements Retriever over chromem-go, an embeddable pure-Go
// vector database. With a path it persists to gob files; with an empty
// path it is purely in-memory (used by tests).
type ChromemStore struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection string
	embedder   Embedder
	log        *zap.Logger
}

// NewChromemStore opens (or creates) the store.
func NewChromemStore(path, collection string, embedder Embedder) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder is required")
	}
	if collection == "" {
		collection = "knowledge"
	}

	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("retrieval: create directory: %w", err)
		}
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("retrieval: open store: %w", err)
		}
	}

	return &ChromemStore{
		db:         db,
		collection: collection,
		embedder:   embedder,
		log:        logging.Named("retrieval"),
	}, nil
}

func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

func (s *ChromemStore) coll() (*chromem.Collection, error) {
	return s.db.GetOrCreateCollection(s.collection, nil, s.embeddingFunc())
}

// Index adds documents to the store. Category and series go into metadata
// so Search can filter on them.
func (s *ChromemStore) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll()
	if err != nil {
		return fmt.Errorf("retrieval: collection: %w", err)
	}

	out := make([]chromem.Document, 0, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", s.collection, coll.Count()+i)
		}
		out = append(out, chromem.Document{
			ID:      id,
			Content: d.Content,
			Metadata: map[string]string{
				"title":    d.Title,
				"category": d.Category,
				"series":   d.Series,
			},
		})
	}
	if err := coll.AddDocuments(ctx, out, 1); err != nil {
		return fmt.Errorf("retrieval: index: %w", err)
	}
	s.log.Debug("indexed documents", zap.Int("count", len(out)))
	return nil
}

// Search performs a similarity query scoped by category and series.
// chromem filters support a single metadata key, so category filtering
// beyond the first entry happens client-side.
func (s *ChromemStore) Search(ctx context.Context, q Query) ([]Snippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.coll()
	if err != nil {
		return nil, fmt.Errorf("retrieval: collection: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	count := coll.Count()
	if count == 0 {
		return nil, nil
	}

	where := map[string]string{}
	if q.Series != "" {
		where["series"] = q.Series
	}
	// Over-fetch so client-side category filtering still fills the limit.
	n := limit * 2
	if n > count {
		n = count
	}

	results, err := coll.Query(ctx, q.Text, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query: %w", err)
	}

	wanted := make(map[string]bool, len(q.Categories))
	for _, c := range q.Categories {
		wanted[c] = true
	}

	snippets := make([]Snippet, 0, limit)
	for _, r := range results {
		if len(wanted) > 0 && !wanted[r.Metadata["category"]] {
			continue
		}
		snippets = append(snippets, Snippet{
			Title:    r.Metadata["title"],
			Content:  r.Content,
			Category: r.Metadata["category"],
			Score:    float64(r.Similarity),
		})
		if len(snippets) == limit {
			break
		}
	}
	return snippets, nil
}
