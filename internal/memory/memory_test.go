package memory

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferences(t *testing.T) {
	s := newStore(t)

	_, ok, err := s.GetPreference("style", "tone")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPreference("style", "tone", "dry"))
	require.NoError(t, s.SetPreference("style", "tense", "past"))
	require.NoError(t, s.SetPreference("style", "tone", "wry")) // upsert

	v, ok, err := s.GetPreference("style", "tone")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "wry", v)

	prefs, err := s.Preferences("style")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tone": "wry", "tense": "past"}, prefs)

	// Categories are namespaces.
	other, err := s.Preferences("format")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecordFeedbackCounts(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.RecordFeedback("write-chapter", "loved it", OutcomePositive, nil))
	require.NoError(t, s.RecordFeedback("write-chapter", "too slow", OutcomeNegative, nil))
	require.NoError(t, s.RecordFeedback("write-chapter", "", OutcomeNeutral, nil))
	require.NoError(t, s.RecordFeedback("write-scene", "fine", OutcomePositive, nil))

	stats, err := s.FeedbackStats("write-chapter")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Positive)
	assert.Equal(t, 1, stats.Negative)
	assert.Equal(t, 1, stats.Neutral)

	stats, err = s.FeedbackStats("never-seen")
	require.NoError(t, err)
	assert.Zero(t, stats.Positive+stats.Negative+stats.Neutral)
}

func TestRecentFeedbackBoundedAtTwenty(t *testing.T) {
	s := newStore(t)

	for i := 0; i < 25; i++ {
		details := map[string]string{"length": fmt.Sprintf("%d words", i)}
		require.NoError(t, s.RecordFeedback("write-chapter", "", OutcomeNegative, details))
	}

	recent, err := s.RecentFeedback("write-chapter", "length")
	require.NoError(t, err)
	require.Len(t, recent, recentFeedbackCap)
	// Most recent first; the five oldest entries were trimmed.
	assert.Equal(t, "24 words", recent[0].Value)
	assert.Equal(t, "5 words", recent[len(recent)-1].Value)
}

func TestRecordFeedbackLeavesCallerDetailsUntouched(t *testing.T) {
	s := newStore(t)

	details := map[string]string{"length": "too long"}
	require.NoError(t, s.RecordFeedback("write-chapter", "way past the target", OutcomeNegative, details))

	assert.Equal(t, map[string]string{"length": "too long"}, details)

	// The comment is still recorded as its own detail.
	recent, err := s.RecentFeedback("write-chapter", "content")
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "way past the target", recent[0].Value)
}

func TestThreadLifecycle(t *testing.T) {
	s := newStore(t)

	created, err := s.CreateThread(PlotThread{
		Title:        "the missing key",
		Description:  "Mara loses the vault key",
		IntroducedAt: 3,
		Importance:   ImportanceHigh,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, ThreadOpen, created.Status)

	updated, err := s.UpdateThread(created.ID, PlotThread{Notes: "resurfaces in act two"})
	require.NoError(t, err)
	assert.Equal(t, "resurfaces in act two", updated.Notes)
	assert.Equal(t, "the missing key", updated.Title)

	resolved, err := s.ResolveThread(created.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, ThreadResolved, resolved.Status)
	assert.Equal(t, 12, resolved.ResolvedAt)

	_, err = s.Thread("no-such-thread")
	assert.Error(t, err)
}

func TestOpenThreadsFiltersByImportance(t *testing.T) {
	s := newStore(t)

	_, err := s.CreateThread(PlotThread{Title: "a", Importance: ImportanceLow, IntroducedAt: 1})
	require.NoError(t, err)
	_, err = s.CreateThread(PlotThread{Title: "b", Importance: ImportanceHigh, IntroducedAt: 2})
	require.NoError(t, err)
	c, err := s.CreateThread(PlotThread{Title: "c", Importance: ImportanceCritical, IntroducedAt: 3})
	require.NoError(t, err)
	_, err = s.ResolveThread(c.ID, 4)
	require.NoError(t, err)

	open, err := s.OpenThreads(ImportanceHigh)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "b", open[0].Title)
}

func TestForgottenThreads(t *testing.T) {
	s := newStore(t)

	_, err := s.CreateThread(PlotThread{Title: "old", IntroducedAt: 1})
	require.NoError(t, err)
	_, err = s.CreateThread(PlotThread{Title: "fresh", IntroducedAt: 9})
	require.NoError(t, err)
	resolved, err := s.CreateThread(PlotThread{Title: "done", IntroducedAt: 1})
	require.NoError(t, err)
	_, err = s.ResolveThread(resolved.ID, 5)
	require.NoError(t, err)

	// Only open threads at least 5 positions stale qualify.
	forgotten, err := s.ForgottenThreads(5, 10)
	require.NoError(t, err)
	require.Len(t, forgotten, 1)
	assert.Equal(t, "old", forgotten[0].Title)
}

func TestRecallRankingAndAccessBump(t *testing.T) {
	s := newStore(t)

	low, err := s.Store("note", "low importance", 0.2)
	require.NoError(t, err)
	high, err := s.Store("note", "high importance", 0.9)
	require.NoError(t, err)
	_, err = s.Store("other", "different type", 1.0)
	require.NoError(t, err)

	items, err := s.Recall("note", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, high.ID, items[0].ID)
	assert.Equal(t, low.ID, items[1].ID)
	assert.Equal(t, 1, items[0].AccessCount)

	// Recall is not idempotent for future ranking: every recall bumps
	// the access count again.
	items, err = s.Recall("note", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].AccessCount)

	limited, err := s.Recall("note", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, high.ID, limited[0].ID)
}

func TestRecallBreaksImportanceTiesByAccessCount(t *testing.T) {
	s := newStore(t)

	_, err := s.Store("note", "a", 0.5)
	require.NoError(t, err)
	_, err = s.Store("note", "b", 0.5)
	require.NoError(t, err)

	// Recalling one item bumps its access count, so it must outrank the
	// untouched one on the next recall.
	first, err := s.Recall("note", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	items, err := s.Recall("note", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first[0].ID, items[0].ID)
}

func TestForget(t *testing.T) {
	s := newStore(t)

	item, err := s.Store("note", "ephemeral", 0.5)
	require.NoError(t, err)
	require.NoError(t, s.Forget(item.ID))

	items, err := s.Recall("note", 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Forgetting twice is harmless.
	assert.NoError(t, s.Forget(item.ID))
}

func TestImportanceClamped(t *testing.T) {
	s := newStore(t)

	item, err := s.Store("note", "x", 3.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, item.Importance)

	item, err = s.Store("note", "y", -1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, item.Importance)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetPreference("style", "tone", "dry"))
	_, err = s.CreateThread(PlotThread{Title: "survives restart", IntroducedAt: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.GetPreference("style", "tone")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dry", v)

	open, err := s.OpenThreads(ImportanceLow)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "survives restart", open[0].Title)
}
