package store

// Schema v1 - Initial database schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Sessions: one row per unit of publishable content
CREATE TABLE IF NOT EXISTS sessions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_name TEXT UNIQUE NOT NULL,
  topic TEXT NOT NULL,
  source_ref TEXT,
  generation_status TEXT NOT NULL DEFAULT 'pending',

  video_path TEXT,
  thumbnail_path TEXT,
  transcript_path TEXT,

  title TEXT,
  description TEXT,
  tags TEXT,

  quality_score REAL DEFAULT 0,
  duration_sec REAL DEFAULT 0,
  loudness_lufs REAL DEFAULT 0,
  word_count INTEGER DEFAULT 0,

  priority INTEGER NOT NULL DEFAULT 0,

  uploaded_to_platform INTEGER NOT NULL DEFAULT 0,
  youtube_id TEXT,
  platform_uploaded_at DATETIME,

  uploaded_to_site INTEGER NOT NULL DEFAULT 0,
  site_url TEXT,
  site_uploaded_at DATETIME,

  shorts_created INTEGER NOT NULL DEFAULT 0,
  short_path TEXT,
  shorts_created_at DATETIME,

  shorts_uploaded INTEGER NOT NULL DEFAULT 0,
  short_youtube_id TEXT,
  shorts_uploaded_at DATETIME,

  archived INTEGER NOT NULL DEFAULT 0,
  archive_path TEXT,
  archived_at DATETIME,

  analytics_fetched_at DATETIME,

  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(generation_status);
CREATE INDEX IF NOT EXISTS idx_sessions_uploaded ON sessions(uploaded_to_platform);

-- Append-only audit record per upload attempt
CREATE TABLE IF NOT EXISTS upload_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id INTEGER NOT NULL REFERENCES sessions(id),
  kind TEXT NOT NULL,
  success INTEGER NOT NULL DEFAULT 0,
  youtube_id TEXT,
  url TEXT,
  error TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_upload_history_session ON upload_history(session_id);

-- Topic dedup ledger: one row per consumed (topic, source) pair
CREATE TABLE IF NOT EXISTS used_topics (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  topic TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  session_id INTEGER REFERENCES sessions(id),
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(topic, source)
);

-- Analytics cache: append-only, reads take the newest row
CREATE TABLE IF NOT EXISTS analytics_cache (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  fetched_at DATETIME NOT NULL,
  best_long_hour INTEGER NOT NULL,
  best_short_hour INTEGER NOT NULL,
  best_weekday INTEGER NOT NULL,
  hourly_json TEXT,
  daily_json TEXT
);
`

// Schema v2 - Performance indexes for the scheduler query paths
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_sessions_quality ON sessions(quality_score DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_status_uploaded ON sessions(generation_status, uploaded_to_platform);
CREATE INDEX IF NOT EXISTS idx_analytics_cache_fetched ON analytics_cache(fetched_at DESC);
`
