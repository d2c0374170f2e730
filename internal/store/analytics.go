package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertSnapshot appends a new analytics snapshot. The cache is append-only;
// readers take the newest row.
func (s *Store) InsertSnapshot(snap *AnalyticsSnapshot) error {
	result, err := s.db.Exec(`
		INSERT INTO analytics_cache
		(fetched_at, best_long_hour, best_short_hour, best_weekday, hourly_json, daily_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.FetchedAt, snap.BestLongHour, snap.BestShortHour, int(snap.BestWeekday),
		snap.HourlyJSON, snap.DailyJSON)
	if err != nil {
		return fmt.Errorf("failed to insert analytics snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		snap.ID = id
	}
	return nil
}

// LatestSnapshot returns the most recent analytics snapshot, or nil if the
// cache is empty.
func (s *Store) LatestSnapshot() (*AnalyticsSnapshot, error) {
	snap := &AnalyticsSnapshot{}
	var weekday int
	err := s.db.QueryRow(`
		SELECT id, fetched_at, best_long_hour, best_short_hour, best_weekday,
		       COALESCE(hourly_json, ''), COALESCE(daily_json, '')
		FROM analytics_cache
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`).Scan(&snap.ID, &snap.FetchedAt, &snap.BestLongHour, &snap.BestShortHour,
		&weekday, &snap.HourlyJSON, &snap.DailyJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics snapshot: %w", err)
	}

	snap.BestWeekday = time.Weekday(weekday)
	return snap, nil
}

// PruneSnapshots removes snapshots older than the given duration, keeping at
// least the newest row. Returns the number of rows removed.
func (s *Store) PruneSnapshots(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`
		DELETE FROM analytics_cache
		WHERE fetched_at < ?
		  AND id != (SELECT id FROM analytics_cache ORDER BY fetched_at DESC, id DESC LIMIT 1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analytics cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
