package memory

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateThread tracks a new narrative thread. ID is generated when empty;
// status defaults to open and importance to medium.
func (s *Store) CreateThread(t PlotThread) (PlotThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = "thread-" + uuid.New().String()[:8]
	}
	if t.Status == "" {
		t.Status = ThreadOpen
	}
	if t.Importance == "" {
		t.Importance = ImportanceMedium
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO threads (id, title, description, status, introduced_at, resolved_at,
			related_entities, importance, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			status = excluded.status, introduced_at = excluded.introduced_at,
			resolved_at = excluded.resolved_at, related_entities = excluded.related_entities,
			importance = excluded.importance, notes = excluded.notes,
			updated_at = excluded.updated_at`,
		t.ID, t.Title, t.Description, string(t.Status), t.IntroducedAt, t.ResolvedAt,
		strings.Join(t.RelatedEntities, ","), string(t.Importance), t.Notes,
		now.Unix(), now.Unix())
	if err != nil {
		return t, fmt.Errorf("memory: create thread: %w", err)
	}
	return t, nil
}

// UpdateThread applies non-zero fields of patch to an existing thread.
func (s *Store) UpdateThread(id string, patch PlotThread) (PlotThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getThread(id)
	if err != nil {
		return PlotThread{}, err
	}
	if patch.Title != "" {
		t.Title = patch.Title
	}
	if patch.Description != "" {
		t.Description = patch.Description
	}
	if patch.Status != "" {
		t.Status = patch.Status
	}
	if patch.Importance != "" {
		t.Importance = patch.Importance
	}
	if patch.Notes != "" {
		t.Notes = patch.Notes
	}
	if patch.ResolvedAt != 0 {
		t.ResolvedAt = patch.ResolvedAt
	}
	if len(patch.RelatedEntities) > 0 {
		t.RelatedEntities = patch.RelatedEntities
	}
	t.UpdatedAt = time.Now()

	_, err = s.db.Exec(`
		UPDATE threads SET title = ?, description = ?, status = ?, resolved_at = ?,
			related_entities = ?, importance = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), t.ResolvedAt,
		strings.Join(t.RelatedEntities, ","), string(t.Importance), t.Notes,
		t.UpdatedAt.Unix(), id)
	if err != nil {
		return PlotThread{}, fmt.Errorf("memory: update thread: %w", err)
	}
	return t, nil
}

// ResolveThread marks a thread resolved at the given position.
func (s *Store) ResolveThread(id string, position int) (PlotThread, error) {
	return s.UpdateThread(id, PlotThread{Status: ThreadResolved, ResolvedAt: position})
}

// Thread returns one thread by id.
func (s *Store) Thread(id string) (PlotThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getThread(id)
}

func (s *Store) getThread(id string) (PlotThread, error) {
	row := s.db.QueryRow(`
		SELECT id, title, description, status, introduced_at, resolved_at,
			related_entities, importance, notes, created_at, updated_at
		FROM threads WHERE id = ?`, id)
	t, err := scanThread(row)
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("memory: thread %s not found", id)
	}
	return t, err
}

// OpenThreads returns open threads with importance >= min, most important
// and oldest-introduced first.
func (s *Store) OpenThreads(min ThreadImportance) ([]PlotThread, error) {
	threads, err := s.listThreads(`WHERE status = ?`, string(ThreadOpen))
	if err != nil {
		return nil, err
	}
	out := threads[:0]
	for _, t := range threads {
		if t.Importance.rank() >= min.rank() {
			out = append(out, t)
		}
	}
	return out, nil
}

// ForgottenThreads returns open threads introduced at least threshold
// positions before currentPosition. Staleness is a pure query, never a
// state transition.
func (s *Store) ForgottenThreads(threshold, currentPosition int) ([]PlotThread, error) {
	threads, err := s.listThreads(`WHERE status = ?`, string(ThreadOpen))
	if err != nil {
		return nil, err
	}
	out := threads[:0]
	for _, t := range threads {
		if currentPosition-t.IntroducedAt >= threshold {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) listThreads(where string, args ...any) ([]PlotThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, title, description, status, introduced_at, resolved_at,
			related_entities, importance, notes, created_at, updated_at
		FROM threads `+where+`
		ORDER BY
			CASE importance WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
			introduced_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: list threads: %w", err)
	}
	defer rows.Close()

	var out []PlotThread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (PlotThread, error) {
	var t PlotThread
	var status, importance, entities string
	var created, updated int64
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.IntroducedAt,
		&t.ResolvedAt, &entities, &importance, &t.Notes, &created, &updated)
	if err != nil {
		return t, err
	}
	t.Status = ThreadStatus(status)
	t.Importance = ThreadImportance(importance)
	if entities != "" {
		t.RelatedEntities = strings.Split(entities, ",")
	}
	t.CreatedAt = time.Unix(created, 0)
	t.UpdatedAt = time.Unix(updated, 0)
	return t, nil
}
