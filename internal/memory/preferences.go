package memory

import (
	"database/sql"
	"fmt"
	"time"
)

// SetPreference upserts a preference value under a category namespace.
func (s *Store) SetPreference(category, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO preferences (category, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		category, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("memory: set preference: %w", err)
	}
	return nil
}

// GetPreference returns the value for (category, key); ok is false when unset.
func (s *Store) GetPreference(category, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(
		`SELECT value FROM preferences WHERE category = ? AND key = ?`,
		category, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory: get preference: %w", err)
	}
	return value, true, nil
}

// Preferences returns all preferences in a category as a key→value map.
func (s *Store) Preferences(category string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT key, value FROM preferences WHERE category = ? ORDER BY key`, category)
	if err != nil {
		return nil, fmt.Errorf("memory: list preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("memory: scan preference: %w", err)
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}
