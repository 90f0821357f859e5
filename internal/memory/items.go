package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store saves a generic recallable record and returns it with its id.
// Importance is clamped to [0,1]. Records are never expired automatically;
// Forget is the only way out.
func (s *Store) Store(itemType, content string, importance float64) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	now := time.Now()
	item := Item{
		ID:           "mem-" + uuid.New().String()[:8],
		Type:         itemType,
		Content:      content,
		Importance:   importance,
		CreatedAt:    now,
		LastAccessed: now,
	}

	_, err := s.db.Exec(`
		INSERT INTO memories (id, type, content, importance, access_count, created_at, last_accessed)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		item.ID, item.Type, item.Content, item.Importance, now.Unix(), now.Unix())
	if err != nil {
		return item, fmt.Errorf("memory: store item: %w", err)
	}
	return item, nil
}

// Recall returns up to limit items of itemType ranked by (importance,
// accessCount) descending, and bumps accessCount and lastAccessed for
// every returned item. Recall therefore reshapes future rankings: a
// recalled item ranks higher next time.
func (s *Store) Recall(itemType string, limit int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT id, type, content, importance, access_count, created_at, last_accessed
		FROM memories WHERE type = ?
		ORDER BY importance DESC, access_count DESC, created_at DESC
		LIMIT ?`, itemType, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: recall: %w", err)
	}

	var items []Item
	for rows.Next() {
		var it Item
		var created, accessed int64
		if err := rows.Scan(&it.ID, &it.Type, &it.Content, &it.Importance,
			&it.AccessCount, &created, &accessed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("memory: scan item: %w", err)
		}
		it.CreatedAt = time.Unix(created, 0)
		it.LastAccessed = time.Unix(accessed, 0)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	now := time.Now().Unix()
	for i := range items {
		if _, err := s.db.Exec(`
			UPDATE memories SET access_count = access_count + 1, last_accessed = ?
			WHERE id = ?`, now, items[i].ID); err != nil {
			return nil, fmt.Errorf("memory: bump access: %w", err)
		}
		items[i].AccessCount++
		items[i].LastAccessed = time.Unix(now, 0)
	}
	return items, nil
}

// Forget removes a record. Removing an unknown id is not an error.
func (s *Store) Forget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("memory: forget: %w", err)
	}
	return nil
}
