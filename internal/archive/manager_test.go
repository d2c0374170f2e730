package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

func openTestStore(t *testing.T, name string) *store.Store {
	t.Helper()
	t.Cleanup(func() {
		os.Remove(name)
		os.Remove(name + "-shm")
		os.Remove(name + "-wal")
	})

	st, err := store.Open(name)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestManager(t *testing.T, st *store.Store) (*Manager, string, string) {
	t.Helper()

	root := t.TempDir()
	sessionsDir := filepath.Join(root, "sessions")
	archiveDir := filepath.Join(root, "archive")
	for _, dir := range []string{sessionsDir, archiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	manager, err := New(st, nil, Config{SessionsDir: sessionsDir, ArchiveDir: archiveDir})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return manager, sessionsDir, archiveDir
}

// publishedSession creates an uploaded session with an on-disk directory
func publishedSession(t *testing.T, st *store.Store, sessionsDir, name string) {
	t.Helper()

	if _, err := st.CreateSession(name, "topic "+name, ""); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	dir := filepath.Join(sessionsDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create session dir: %v", err)
	}
	video := filepath.Join(dir, "session.mp4")
	if err := os.WriteFile(video, []byte("video data"), 0644); err != nil {
		t.Fatalf("failed to write video: %v", err)
	}

	complete := store.StatusComplete
	quality := 5.0
	if err := st.Transition(name, store.SessionUpdate{
		Status: &complete, VideoPath: &video, QualityScore: &quality,
	}); err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}
	if err := st.MarkUploaded(name, "vid-"+name, time.Now()); err != nil {
		t.Fatalf("failed to mark uploaded: %v", err)
	}
}

func TestArchiveMovesDirAndSetsFlag(t *testing.T) {
	st := openTestStore(t, "test-archive.db")
	manager, sessionsDir, archiveDir := newTestManager(t, st)

	publishedSession(t, st, sessionsDir, "done")

	if err := manager.Archive("done"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(sessionsDir, "done")); !os.IsNotExist(err) {
		t.Error("expected hot-storage dir to be gone")
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "done", "session.mp4")); err != nil {
		t.Errorf("expected archived video to exist: %v", err)
	}

	session, err := st.GetSession("done")
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if !session.Archived {
		t.Error("expected archived flag set")
	}
	if session.ArchivePath != filepath.Join(archiveDir, "done") {
		t.Errorf("unexpected archive path %q", session.ArchivePath)
	}
	if session.ArchivedAt == nil {
		t.Error("expected archived_at set")
	}
}

func TestArchiveRefusesExistingDestination(t *testing.T) {
	st := openTestStore(t, "test-archive-dup.db")
	manager, sessionsDir, archiveDir := newTestManager(t, st)

	publishedSession(t, st, sessionsDir, "clash")
	if err := os.MkdirAll(filepath.Join(archiveDir, "clash"), 0755); err != nil {
		t.Fatal(err)
	}

	err := manager.Archive("clash")
	if !errors.Is(err, util.ErrAlreadyArchived) {
		t.Fatalf("expected ErrAlreadyArchived, got %v", err)
	}

	// No side effects on refusal
	if _, err := os.Stat(filepath.Join(sessionsDir, "clash", "session.mp4")); err != nil {
		t.Errorf("source dir must be untouched: %v", err)
	}
	session, _ := st.GetSession("clash")
	if session.Archived {
		t.Error("refused archive must not set the flag")
	}
}

func TestArchiveMissingSource(t *testing.T) {
	st := openTestStore(t, "test-archive-missing.db")
	manager, _, _ := newTestManager(t, st)

	if _, err := st.CreateSession("diskless", "topic", ""); err != nil {
		t.Fatal(err)
	}

	err := manager.Archive("diskless")
	if !errors.Is(err, util.ErrMissingArtifact) {
		t.Errorf("expected ErrMissingArtifact, got %v", err)
	}

	if err := manager.Archive("never-created"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	st := openTestStore(t, "test-restore.db")
	manager, sessionsDir, _ := newTestManager(t, st)

	publishedSession(t, st, sessionsDir, "boomerang")
	if err := manager.Archive("boomerang"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	if err := manager.Restore("boomerang"); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(sessionsDir, "boomerang", "session.mp4")); err != nil {
		t.Errorf("expected restored video to exist: %v", err)
	}

	session, _ := st.GetSession("boomerang")
	if session.Archived {
		t.Error("restore must clear the archived flag")
	}
	if session.ArchivePath != "" {
		t.Errorf("restore must clear the archive path, got %q", session.ArchivePath)
	}

	// Restoring again fails: the session is no longer archived
	if err := manager.Restore("boomerang"); !errors.Is(err, util.ErrNotArchived) {
		t.Errorf("expected ErrNotArchived, got %v", err)
	}
}

func TestArchiveAllContinuesPastFailures(t *testing.T) {
	st := openTestStore(t, "test-archive-all.db")
	manager, sessionsDir, _ := newTestManager(t, st)

	publishedSession(t, st, sessionsDir, "one")
	publishedSession(t, st, sessionsDir, "two")

	// Remove one source dir so its archive fails
	if err := os.RemoveAll(filepath.Join(sessionsDir, "one")); err != nil {
		t.Fatal(err)
	}

	result, err := manager.ArchiveAll(context.Background())
	if err != nil {
		t.Fatalf("archive-all failed: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("expected 2 processed / 1 ok / 1 failed, got %+v", result)
	}

	session, _ := st.GetSession("two")
	if !session.Archived {
		t.Error("the healthy session must be archived despite the sibling failure")
	}
}

func TestCleanupIncomplete(t *testing.T) {
	st := openTestStore(t, "test-cleanup.db")
	manager, sessionsDir, _ := newTestManager(t, st)

	makeFailed := func(name string, ageDays int) {
		if _, err := st.CreateSession(name, "topic "+name, ""); err != nil {
			t.Fatal(err)
		}
		failed := store.StatusFailed
		if err := st.Transition(name, store.SessionUpdate{Status: &failed}); err != nil {
			t.Fatal(err)
		}
		if ageDays > 0 {
			if _, err := st.DB().Exec(
				"UPDATE sessions SET updated_at = datetime('now', ?) WHERE session_name = ?",
				fmt.Sprintf("-%d days", ageDays), name); err != nil {
				t.Fatal(err)
			}
		}
		if err := os.MkdirAll(filepath.Join(sessionsDir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	makeFailed("stale", 10)
	makeFailed("recent", 0)

	result, err := manager.CleanupIncomplete(context.Background(), 7)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("expected one directory deleted, got %+v", result)
	}

	if _, err := os.Stat(filepath.Join(sessionsDir, "stale")); !os.IsNotExist(err) {
		t.Error("stale failure dir must be deleted")
	}
	if _, err := os.Stat(filepath.Join(sessionsDir, "recent")); err != nil {
		t.Error("recent failure dir must survive")
	}

	// Database rows are kept for the audit trail
	session, err := st.GetSession("stale")
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if session == nil {
		t.Error("cleanup must not delete session rows")
	}
}
