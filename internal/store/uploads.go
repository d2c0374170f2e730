package store

import (
	"fmt"
)

// AppendUpload appends one upload attempt to the audit log.
// Rows are never mutated after insert.
func (s *Store) AppendUpload(rec *UploadRecord) error {
	result, err := s.db.Exec(`
		INSERT INTO upload_history (session_id, kind, success, youtube_id, url, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Kind, rec.Success, rec.YouTubeID, rec.URL, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to append upload record: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		rec.ID = id
	}
	return nil
}

// UploadsForSession returns the full upload history for a session,
// oldest attempt first.
func (s *Store) UploadsForSession(sessionID int64) ([]*UploadRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, success,
		       COALESCE(youtube_id, ''), COALESCE(url, ''), COALESCE(error, ''),
		       created_at
		FROM upload_history
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload history: %w", err)
	}
	defer rows.Close()

	var records []*UploadRecord
	for rows.Next() {
		rec := &UploadRecord{}
		err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.Kind, &rec.Success,
			&rec.YouTubeID, &rec.URL, &rec.Error,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountUploads returns total and failed upload attempts for one kind
func (s *Store) CountUploads(kind UploadKind) (total int, failed int, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM upload_history WHERE kind = ?
	`, kind).Scan(&total, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return total, failed, nil
}
