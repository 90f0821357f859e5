package memory

import (
	"database/sql"
	"fmt"
	"time"
)

// recentFeedbackCap bounds how many detail/outcome pairs are kept per
// (task type, detail key).
const recentFeedbackCap = 20

// RecordFeedback updates the running outcome counts for taskType and
// appends each detail as a recent detail/outcome pair, trimming every
// (task type, detail key) list to the last 20 entries.
func (s *Store) RecordFeedback(taskType, content string, outcome FeedbackOutcome, details map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("memory: begin feedback tx: %w", err)
	}
	defer tx.Rollback()

	var pos, neg, neu int
	switch outcome {
	case OutcomePositive:
		pos = 1
	case OutcomeNegative:
		neg = 1
	default:
		neu = 1
	}
	if _, err := tx.Exec(`
		INSERT INTO feedback_stats (task_type, positive, negative, neutral)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(task_type) DO UPDATE SET
			positive = positive + excluded.positive,
			negative = negative + excluded.negative,
			neutral  = neutral + excluded.neutral`,
		taskType, pos, neg, neu); err != nil {
		return fmt.Errorf("memory: update feedback stats: %w", err)
	}

	now := time.Now().UnixNano()
	// Content is recorded as a detail too so plain feedback still leaves
	// a recallable trace. The caller's map is left untouched.
	recorded := make(map[string]string, len(details)+1)
	for k, v := range details {
		recorded[k] = v
	}
	if content != "" {
		if _, ok := recorded["content"]; !ok {
			recorded["content"] = content
		}
	}
	for key, value := range recorded {
		if _, err := tx.Exec(`
			INSERT INTO feedback_recent (task_type, detail_key, detail_value, outcome, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			taskType, key, value, string(outcome), now); err != nil {
			return fmt.Errorf("memory: insert feedback detail: %w", err)
		}
		if _, err := tx.Exec(`
			DELETE FROM feedback_recent
			WHERE task_type = ? AND detail_key = ? AND rowid NOT IN (
				SELECT rowid FROM feedback_recent
				WHERE task_type = ? AND detail_key = ?
				ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
			taskType, key, taskType, key, recentFeedbackCap); err != nil {
			return fmt.Errorf("memory: trim feedback detail: %w", err)
		}
	}

	return tx.Commit()
}

// FeedbackStats returns the running counts for taskType. A task type with
// no feedback yet returns zero counts, not an error.
func (s *Store) FeedbackStats(taskType string) (FeedbackStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := FeedbackStats{TaskType: taskType}
	err := s.db.QueryRow(
		`SELECT positive, negative, neutral FROM feedback_stats WHERE task_type = ?`,
		taskType).Scan(&stats.Positive, &stats.Negative, &stats.Neutral)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("memory: feedback stats: %w", err)
	}
	return stats, nil
}

// RecentFeedback returns the retained detail/outcome pairs for
// (taskType, detailKey), most recent first.
func (s *Store) RecentFeedback(taskType, detailKey string) ([]FeedbackDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT detail_value, outcome, created_at FROM feedback_recent
		WHERE task_type = ? AND detail_key = ?
		ORDER BY created_at DESC, rowid DESC`,
		taskType, detailKey)
	if err != nil {
		return nil, fmt.Errorf("memory: recent feedback: %w", err)
	}
	defer rows.Close()

	var out []FeedbackDetail
	for rows.Next() {
		var d FeedbackDetail
		var outcome string
		var created int64
		if err := rows.Scan(&d.Value, &outcome, &created); err != nil {
			return nil, fmt.Errorf("memory: scan feedback: %w", err)
		}
		d.Outcome = FeedbackOutcome(outcome)
		d.CreatedAt = time.Unix(0, created)
		out = append(out, d)
	}
	return out, rows.Err()
}
