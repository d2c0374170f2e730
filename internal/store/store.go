package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2
)

// SessionStatus is the generation lifecycle state of a session
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusGenerating SessionStatus = "generating"
	StatusComplete   SessionStatus = "complete"
	StatusFailed     SessionStatus = "failed"
)

// Valid reports whether s is a known status value
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// UploadKind distinguishes long-form uploads from shorts
type UploadKind string

const (
	KindLong  UploadKind = "long"
	KindShort UploadKind = "short"
)

// Strategy selects the ordering used to pick the next upload candidate
type Strategy string

const (
	StrategyQuality  Strategy = "quality"
	StrategyFIFO     Strategy = "fifo"
	StrategyPriority Strategy = "priority"
)

// ParseStrategy validates a strategy name from config or flags
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyQuality, StrategyFIFO, StrategyPriority:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("unknown upload strategy %q (want quality, fifo or priority)", name)
}

// Store represents the application's persistent state
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*Store, error) {
	// Open with pragmas for performance and reliability
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Schema v2 - query-path indexes
	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes a function within a transaction
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Session represents one unit of publishable content and its lifecycle flags
type Session struct {
	ID        int64
	Name      string
	Topic     string
	SourceRef string

	Status SessionStatus

	VideoPath      string
	ThumbnailPath  string
	TranscriptPath string

	Title       string
	Description string
	Tags        string // comma-joined

	QualityScore float64
	DurationSec  float64
	LoudnessLUFS float64
	WordCount    int

	Priority int

	UploadedToPlatform bool
	YouTubeID          string
	PlatformUploadedAt *time.Time

	UploadedToSite bool
	SiteURL        string
	SiteUploadedAt *time.Time

	ShortsCreated   bool
	ShortPath       string
	ShortsCreatedAt *time.Time

	ShortsUploaded   bool
	ShortYouTubeID   string
	ShortsUploadedAt *time.Time

	Archived    bool
	ArchivePath string
	ArchivedAt  *time.Time

	AnalyticsFetchedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagList splits the comma-joined tags column
func (sn *Session) TagList() []string {
	if sn.Tags == "" {
		return nil
	}
	parts := strings.Split(sn.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// UploadRecord is one append-only upload attempt audit row
type UploadRecord struct {
	ID        int64
	SessionID int64
	Kind      UploadKind
	Success   bool
	YouTubeID string
	URL       string
	Error     string
	CreatedAt time.Time
}

// UsedTopic is one row of the topic dedup ledger
type UsedTopic struct {
	ID        int64
	Topic     string
	Source    string
	SessionID int64
	CreatedAt time.Time
}

// AnalyticsSnapshot is one cached analytics fetch; reads use the newest row
type AnalyticsSnapshot struct {
	ID            int64
	FetchedAt     time.Time
	BestLongHour  int
	BestShortHour int
	BestWeekday   time.Weekday
	HourlyJSON    string
	DailyJSON     string
}
