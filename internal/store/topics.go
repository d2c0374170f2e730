package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// ClaimTopic records a (topic, source) pair as consumed by a session.
// Returns util.ErrDuplicateTopic if the pair was already claimed.
func (s *Store) ClaimTopic(topic, source string, sessionID int64) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", util.ErrInvalidConfig)
	}

	_, err := s.db.Exec(`
		INSERT INTO used_topics (topic, source, session_id)
		VALUES (?, ?, ?)
	`, topic, source, sessionID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %q from source %q", util.ErrDuplicateTopic, topic, source)
		}
		return fmt.Errorf("failed to claim topic: %w", err)
	}
	return nil
}

// IsTopicUsed reports whether a (topic, source) pair was already consumed
func (s *Store) IsTopicUsed(topic, source string) (bool, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM used_topics WHERE topic = ? AND source = ?", topic, source).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query used topic: %w", err)
	}
	return true, nil
}

// UsedTopics returns all consumed topics for a source
func (s *Store) UsedTopics(source string) ([]*UsedTopic, error) {
	rows, err := s.db.Query(`
		SELECT id, topic, source, COALESCE(session_id, 0), created_at
		FROM used_topics WHERE source = ?
		ORDER BY id ASC
	`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query used topics: %w", err)
	}
	defer rows.Close()

	var topics []*UsedTopic
	for rows.Next() {
		t := &UsedTopic{}
		if err := rows.Scan(&t.ID, &t.Topic, &t.Source, &t.SessionID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan used topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// ResetTopicSource clears the dedup ledger for one source so an exhausted
// topic pool can be reused. Returns the number of rows removed.
func (s *Store) ResetTopicSource(source string) (int, error) {
	result, err := s.db.Exec("DELETE FROM used_topics WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("failed to reset topic source: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
