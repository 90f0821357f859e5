package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder produces deterministic vectors from keyword counts so
// similarity ranking is predictable without a real embedding model.
type keywordEmbedder struct {
	keywords []string
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords)+1)
	for i, kw := range e.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(e.keywords)] = 0.1 // never the zero vector
	return vec, nil
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	emb := &keywordEmbedder{keywords: []string{"dragon", "harbor", "rebellion"}}
	store, err := NewChromemStore("", "knowledge", emb)
	require.NoError(t, err)
	return store
}

func seedDocs(t *testing.T, store *ChromemStore) {
	t.Helper()
	err := store.Index(context.Background(), []Document{
		{ID: "d1", Title: "Dragon lore", Content: "dragon dragon dragon", Category: "worldbuilding", Series: "embers"},
		{ID: "d2", Title: "Harbor district", Content: "harbor harbor", Category: "worldbuilding", Series: "embers"},
		{ID: "d3", Title: "Mara", Content: "rebellion rebellion", Category: "characters", Series: "embers"},
		{ID: "d4", Title: "Other-series dragon", Content: "dragon dragon", Category: "worldbuilding", Series: "tides"},
	})
	require.NoError(t, err)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := newTestStore(t)
	seedDocs(t, store)

	snippets, err := store.Search(context.Background(), Query{Text: "tell me about the dragon"})
	require.NoError(t, err)
	require.NotEmpty(t, snippets)
	assert.Equal(t, "Dragon lore", snippets[0].Title)
	assert.Greater(t, snippets[0].Score, 0.0)
}

func TestSearchFiltersByCategory(t *testing.T) {
	store := newTestStore(t)
	seedDocs(t, store)

	snippets, err := store.Search(context.Background(), Query{
		Text:       "rebellion against the harbor dragon",
		Categories: []string{"characters"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, snippets)
	for _, s := range snippets {
		assert.Equal(t, "characters", s.Category)
	}
}

func TestSearchScopedBySeries(t *testing.T) {
	store := newTestStore(t)
	seedDocs(t, store)

	snippets, err := store.Search(context.Background(), Query{
		Text:   "dragon",
		Series: "tides",
	})
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "Other-series dragon", snippets[0].Title)
}

func TestSearchRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	seedDocs(t, store)

	snippets, err := store.Search(context.Background(), Query{Text: "dragon harbor rebellion", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, snippets, 2)
}

func TestSearchEmptyStore(t *testing.T) {
	store := newTestStore(t)

	snippets, err := store.Search(context.Background(), Query{Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestIndexAssignsIDsWhenMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Index(context.Background(), []Document{
		{Title: "A", Content: "dragon", Category: "worldbuilding"},
		{Title: "B", Content: "harbor", Category: "worldbuilding"},
	})
	require.NoError(t, err)

	snippets, err := store.Search(context.Background(), Query{Text: "dragon harbor", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, snippets, 2)
}

func TestIndexNothingIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Index(context.Background(), nil))
}

func TestNewChromemStoreRequiresEmbedder(t *testing.T) {
	_, err := NewChromemStore("", "knowledge", nil)
	assert.Error(t, err)
}

func TestPersistentStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	emb := &keywordEmbedder{keywords: []string{"dragon"}}

	store, err := NewChromemStore(dir, "knowledge", emb)
	require.NoError(t, err)
	require.NoError(t, store.Index(context.Background(), []Document{
		{ID: "d1", Title: "Dragon lore", Content: "dragon", Category: "worldbuilding"},
	}))

	reopened, err := NewChromemStore(dir, "knowledge", emb)
	require.NoError(t, err)
	snippets, err := reopened.Search(context.Background(), Query{Text: "dragon"})
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "Dragon lore", snippets[0].Title)
}
