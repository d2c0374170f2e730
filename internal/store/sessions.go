package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// sessionColumns is the canonical select list shared by every session query
const sessionColumns = `
	id, session_name, topic, COALESCE(source_ref, ''),
	generation_status,
	COALESCE(video_path, ''), COALESCE(thumbnail_path, ''), COALESCE(transcript_path, ''),
	COALESCE(title, ''), COALESCE(description, ''), COALESCE(tags, ''),
	quality_score, duration_sec, loudness_lufs, word_count,
	priority,
	uploaded_to_platform, COALESCE(youtube_id, ''), platform_uploaded_at,
	uploaded_to_site, COALESCE(site_url, ''), site_uploaded_at,
	shorts_created, COALESCE(short_path, ''), shorts_created_at,
	shorts_uploaded, COALESCE(short_youtube_id, ''), shorts_uploaded_at,
	archived, COALESCE(archive_path, ''), archived_at,
	analytics_fetched_at,
	created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	sn := &Session{}
	var platformAt, siteAt, shortsCreatedAt, shortsUploadedAt, archivedAt, analyticsAt sql.NullTime

	err := row.Scan(
		&sn.ID, &sn.Name, &sn.Topic, &sn.SourceRef,
		&sn.Status,
		&sn.VideoPath, &sn.ThumbnailPath, &sn.TranscriptPath,
		&sn.Title, &sn.Description, &sn.Tags,
		&sn.QualityScore, &sn.DurationSec, &sn.LoudnessLUFS, &sn.WordCount,
		&sn.Priority,
		&sn.UploadedToPlatform, &sn.YouTubeID, &platformAt,
		&sn.UploadedToSite, &sn.SiteURL, &siteAt,
		&sn.ShortsCreated, &sn.ShortPath, &shortsCreatedAt,
		&sn.ShortsUploaded, &sn.ShortYouTubeID, &shortsUploadedAt,
		&sn.Archived, &sn.ArchivePath, &archivedAt,
		&analyticsAt,
		&sn.CreatedAt, &sn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	setTime := func(dst **time.Time, src sql.NullTime) {
		if src.Valid {
			t := src.Time
			*dst = &t
		}
	}
	setTime(&sn.PlatformUploadedAt, platformAt)
	setTime(&sn.SiteUploadedAt, siteAt)
	setTime(&sn.ShortsCreatedAt, shortsCreatedAt)
	setTime(&sn.ShortsUploadedAt, shortsUploadedAt)
	setTime(&sn.ArchivedAt, archivedAt)
	setTime(&sn.AnalyticsFetchedAt, analyticsAt)

	return sn, nil
}

// CreateSession inserts a new session in the pending state.
// Returns util.ErrDuplicateSession if the name is already taken.
func (s *Store) CreateSession(name, topic, sourceRef string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty session name", util.ErrInvalidConfig)
	}

	result, err := s.db.Exec(`
		INSERT INTO sessions (session_name, topic, source_ref, generation_status)
		VALUES (?, ?, ?, ?)
	`, name, topic, sourceRef, StatusPending)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", util.ErrDuplicateSession, name)
		}
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session ID: %w", err)
	}
	return id, nil
}

// GetSession retrieves a session by name
func (s *Store) GetSession(name string) (*Session, error) {
	sn, err := scanSession(s.db.QueryRow(
		"SELECT"+sessionColumns+" FROM sessions WHERE session_name = ?", name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sn, nil
}

// GetSessionByID retrieves a session by row id
func (s *Store) GetSessionByID(id int64) (*Session, error) {
	sn, err := scanSession(s.db.QueryRow(
		"SELECT"+sessionColumns+" FROM sessions WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sn, nil
}

// SessionUpdate is a partial update applied by Transition. Only non-nil
// fields are written, so each pipeline phase touches only its own columns.
type SessionUpdate struct {
	Status *SessionStatus

	VideoPath      *string
	ThumbnailPath  *string
	TranscriptPath *string

	Title       *string
	Description *string
	Tags        *string

	QualityScore *float64
	DurationSec  *float64
	LoudnessLUFS *float64
	WordCount    *int

	Priority *int

	UploadedToSite *bool
	SiteURL        *string
	SiteUploadedAt *time.Time

	ShortsCreated   *bool
	ShortPath       *string
	ShortsCreatedAt *time.Time

	ShortsUploaded   *bool
	ShortYouTubeID   *string
	ShortsUploadedAt *time.Time

	Archived    *bool
	ArchivePath *string
	ArchivedAt  *time.Time

	AnalyticsFetchedAt *time.Time
}

// Transition applies a partial update to a session atomically.
// Returns util.ErrNotFound if the session does not exist.
func (s *Store) Transition(name string, u SessionUpdate) error {
	var sets []string
	var args []any

	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if u.Status != nil {
		if !u.Status.Valid() {
			return fmt.Errorf("%w: invalid status %q", util.ErrInvalidConfig, *u.Status)
		}
		add("generation_status", *u.Status)
	}
	if u.VideoPath != nil {
		add("video_path", *u.VideoPath)
	}
	if u.ThumbnailPath != nil {
		add("thumbnail_path", *u.ThumbnailPath)
	}
	if u.TranscriptPath != nil {
		add("transcript_path", *u.TranscriptPath)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Tags != nil {
		add("tags", *u.Tags)
	}
	if u.QualityScore != nil {
		add("quality_score", *u.QualityScore)
	}
	if u.DurationSec != nil {
		add("duration_sec", *u.DurationSec)
	}
	if u.LoudnessLUFS != nil {
		add("loudness_lufs", *u.LoudnessLUFS)
	}
	if u.WordCount != nil {
		add("word_count", *u.WordCount)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.UploadedToSite != nil {
		add("uploaded_to_site", *u.UploadedToSite)
	}
	if u.SiteURL != nil {
		add("site_url", *u.SiteURL)
	}
	if u.SiteUploadedAt != nil {
		add("site_uploaded_at", *u.SiteUploadedAt)
	}
	if u.ShortsCreated != nil {
		add("shorts_created", *u.ShortsCreated)
	}
	if u.ShortPath != nil {
		add("short_path", *u.ShortPath)
	}
	if u.ShortsCreatedAt != nil {
		add("shorts_created_at", *u.ShortsCreatedAt)
	}
	if u.ShortsUploaded != nil {
		add("shorts_uploaded", *u.ShortsUploaded)
	}
	if u.ShortYouTubeID != nil {
		add("short_youtube_id", *u.ShortYouTubeID)
	}
	if u.ShortsUploadedAt != nil {
		add("shorts_uploaded_at", *u.ShortsUploadedAt)
	}
	if u.Archived != nil {
		add("archived", *u.Archived)
	}
	if u.ArchivePath != nil {
		add("archive_path", *u.ArchivePath)
	}
	if u.ArchivedAt != nil {
		add("archived_at", *u.ArchivedAt)
	}
	if u.AnalyticsFetchedAt != nil {
		add("analytics_fetched_at", *u.AnalyticsFetchedAt)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, name)

	result, err := s.db.Exec(
		"UPDATE sessions SET "+strings.Join(sets, ", ")+" WHERE session_name = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s", util.ErrNotFound, name)
	}
	return nil
}

// MarkUploaded records a successful platform upload. The write is
// conditional on uploaded_to_platform = 0 so that two workers can never
// publish the same session twice; the second writer gets util.ErrNotFound.
func (s *Store) MarkUploaded(name, youtubeID string, at time.Time) error {
	result, err := s.db.Exec(`
		UPDATE sessions
		SET uploaded_to_platform = 1, youtube_id = ?, platform_uploaded_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE session_name = ? AND uploaded_to_platform = 0
	`, youtubeID, at, name)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s not eligible for upload mark", util.ErrNotFound, name)
	}
	return nil
}

// uploadEligibility is the shared filter for all candidate strategies:
// generation complete, a resolvable primary artifact, not yet on the platform.
const uploadEligibility = `
	generation_status = 'complete'
	AND video_path IS NOT NULL AND video_path != ''
	AND uploaded_to_platform = 0`

// NextCandidate returns the next session eligible for platform upload under
// the given strategy, or nil if the queue is empty.
func (s *Store) NextCandidate(strategy Strategy) (*Session, error) {
	var order string
	switch strategy {
	case StrategyQuality:
		order = "quality_score DESC, created_at ASC, id ASC"
	case StrategyFIFO:
		order = "created_at ASC, id ASC"
	case StrategyPriority:
		order = "priority DESC, quality_score DESC, created_at ASC, id ASC"
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", util.ErrInvalidConfig, strategy)
	}

	sn, err := scanSession(s.db.QueryRow(
		"SELECT" + sessionColumns + " FROM sessions WHERE" + uploadEligibility +
			" ORDER BY " + order + " LIMIT 1"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate: %w", err)
	}
	return sn, nil
}

// NextShortsCandidate returns the best session eligible for short creation:
// public on the site but not yet on the platform, shorts not yet uploaded.
func (s *Store) NextShortsCandidate() (*Session, error) {
	sn, err := scanSession(s.db.QueryRow(
		"SELECT" + sessionColumns + ` FROM sessions
		WHERE generation_status = 'complete'
		  AND uploaded_to_site = 1
		  AND uploaded_to_platform = 0
		  AND shorts_uploaded = 0
		  AND video_path IS NOT NULL AND video_path != ''
		ORDER BY quality_score DESC, created_at ASC, id ASC
		LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query shorts candidate: %w", err)
	}
	return sn, nil
}

// SessionsToArchive returns all fully-published sessions not yet archived
func (s *Store) SessionsToArchive() ([]*Session, error) {
	return s.querySessions(
		"SELECT" + sessionColumns + ` FROM sessions
		WHERE uploaded_to_platform = 1 AND archived = 0
		ORDER BY platform_uploaded_at ASC, id ASC`)
}

// StaleFailures returns failed sessions whose last update is strictly older
// than the given number of days. Candidates for on-disk cleanup.
func (s *Store) StaleFailures(olderThanDays int) ([]*Session, error) {
	return s.querySessions(
		"SELECT"+sessionColumns+` FROM sessions
		WHERE generation_status = 'failed'
		  AND updated_at < datetime('now', ?)
		ORDER BY updated_at ASC, id ASC`,
		fmt.Sprintf("-%d days", olderThanDays))
}

// ListSessions returns all sessions ordered by creation
func (s *Store) ListSessions() ([]*Session, error) {
	return s.querySessions(
		"SELECT" + sessionColumns + " FROM sessions ORDER BY created_at ASC, id ASC")
}

func (s *Store) querySessions(query string, args ...any) ([]*Session, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sn, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sn)
	}
	return sessions, rows.Err()
}

// CountByStatus returns the number of sessions in each generation status
func (s *Store) CountByStatus() (map[SessionStatus]int, error) {
	rows, err := s.db.Query(
		"SELECT generation_status, COUNT(*) FROM sessions GROUP BY generation_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[SessionStatus]int)
	for rows.Next() {
		var status SessionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
