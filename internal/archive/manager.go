package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/randysalars/dreamweaving-publisher/internal/report"
	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// Config holds archive manager configuration
type Config struct {
	SessionsDir string // hot storage root, one directory per session
	ArchiveDir  string // archival storage root
	DryRun      bool
	RetryConfig *util.RetryConfig
}

// Manager moves fully-published sessions out of hot storage and reclaims
// space from abandoned failures. The directory move and the archived-flag
// update form one logical unit: on move failure the flag is never set.
type Manager struct {
	store  *store.Store
	logger *report.EventLogger
	cfg    Config
}

// New creates a Manager. logger may be nil.
func New(st *store.Store, logger *report.EventLogger, cfg Config) (*Manager, error) {
	if cfg.SessionsDir == "" || cfg.ArchiveDir == "" {
		return nil, fmt.Errorf("%w: sessions and archive directories are required", util.ErrInvalidConfig)
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = util.DefaultRetryConfig()
	}
	return &Manager{store: st, logger: logger, cfg: cfg}, nil
}

// SessionDir returns the hot-storage path for a session
func (m *Manager) SessionDir(name string) string {
	return filepath.Join(m.cfg.SessionsDir, name)
}

// ArchivePath returns the archival path for a session
func (m *Manager) ArchivePath(name string) string {
	return filepath.Join(m.cfg.ArchiveDir, name)
}

// Archive moves one session's directory to archival storage and flips the
// archived flag. Returns util.ErrAlreadyArchived when the destination
// already holds a folder for this session.
func (m *Manager) Archive(name string) error {
	session, err := m.store.GetSession(name)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", util.ErrNotFound, name)
	}

	src := m.SessionDir(name)
	dst := m.ArchivePath(name)

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", util.ErrAlreadyArchived, dst)
	}

	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: session directory %s", util.ErrMissingArtifact, src)
	}

	if m.cfg.DryRun {
		util.InfoLog("DRY-RUN: would archive %s -> %s", src, dst)
		return nil
	}

	if err := m.moveDir(src, dst); err != nil {
		if m.logger != nil {
			m.logger.LogArchive(report.EventArchive, name, dst, err)
		}
		return fmt.Errorf("failed to move %s to archive: %w", name, err)
	}

	archived := true
	now := time.Now()
	if err := m.store.Transition(name, store.SessionUpdate{
		Archived:    &archived,
		ArchivePath: &dst,
		ArchivedAt:  &now,
	}); err != nil {
		return fmt.Errorf("moved %s but failed to record it: %w", name, err)
	}

	if m.logger != nil {
		m.logger.LogArchive(report.EventArchive, name, dst, nil)
	}
	util.SuccessLog("Archived session %q -> %s", name, dst)
	return nil
}

// Restore moves an archived session back to hot storage, failing if the
// active path already exists.
func (m *Manager) Restore(name string) error {
	session, err := m.store.GetSession(name)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", util.ErrNotFound, name)
	}
	if !session.Archived {
		return fmt.Errorf("%w: session %s", util.ErrNotArchived, name)
	}

	src := m.ArchivePath(name)
	dst := m.SessionDir(name)

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("active path already exists: %s", dst)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: archive directory %s", util.ErrMissingArtifact, src)
	}

	if m.cfg.DryRun {
		util.InfoLog("DRY-RUN: would restore %s -> %s", src, dst)
		return nil
	}

	if err := m.moveDir(src, dst); err != nil {
		return fmt.Errorf("failed to restore %s: %w", name, err)
	}

	archived := false
	empty := ""
	if err := m.store.Transition(name, store.SessionUpdate{
		Archived:    &archived,
		ArchivePath: &empty,
	}); err != nil {
		return fmt.Errorf("restored %s but failed to record it: %w", name, err)
	}

	if m.logger != nil {
		m.logger.LogArchive(report.EventRestore, name, dst, nil)
	}
	util.SuccessLog("Restored session %q -> %s", name, dst)
	return nil
}

// Result summarizes a batch archive or cleanup run
type Result struct {
	Processed int
	Succeeded int
	Failed    int
	Errors    []error
}

// ArchiveAll archives every fully-published session, continuing past
// individual failures and returning aggregate counts.
func (m *Manager) ArchiveAll(ctx context.Context) (*Result, error) {
	sessions, err := m.store.SessionsToArchive()
	if err != nil {
		return nil, fmt.Errorf("failed to list archivable sessions: %w", err)
	}

	result := &Result{}
	if len(sessions) == 0 {
		util.InfoLog("No sessions to archive")
		return result, nil
	}

	util.InfoLog("Archiving %d sessions", len(sessions))

	bar := progressbar.NewOptions(len(sessions),
		progressbar.OptionSetDescription("Archiving"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Processed++
		if err := m.Archive(session.Name); err != nil {
			util.ErrorLog("Failed to archive %s: %v", session.Name, err)
			result.Failed++
			result.Errors = append(result.Errors, err)
		} else {
			result.Succeeded++
		}
		bar.Add(1)
	}

	util.SuccessLog("Archive run complete: %d archived, %d failed", result.Succeeded, result.Failed)
	return result, nil
}

// CleanupIncomplete hard-deletes the on-disk directories of failed sessions
// strictly older than olderThanDays. Database rows are kept.
func (m *Manager) CleanupIncomplete(ctx context.Context, olderThanDays int) (*Result, error) {
	stale, err := m.store.StaleFailures(olderThanDays)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale failures: %w", err)
	}

	result := &Result{}
	if len(stale) == 0 {
		util.InfoLog("No stale failed sessions older than %d days", olderThanDays)
		return result, nil
	}

	util.InfoLog("Cleaning up %d stale failed sessions", len(stale))

	var reclaimed int64
	for _, session := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Processed++
		dir := m.SessionDir(session.Name)

		if _, err := os.Stat(dir); err != nil {
			// Nothing on disk for this failure
			continue
		}

		size := dirSize(dir)

		if m.cfg.DryRun {
			util.InfoLog("DRY-RUN: would delete %s (%s)", dir, util.FormatBytes(size))
			result.Succeeded++
			continue
		}

		if err := util.RetryableRemoveAll(dir, m.cfg.RetryConfig); err != nil {
			util.ErrorLog("Failed to delete %s: %v", dir, err)
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}

		reclaimed += size
		result.Succeeded++
		if m.logger != nil {
			m.logger.Log(report.Event{Event: report.EventCleanup, Session: session.Name, Path: dir})
		}
		util.DebugLog("Deleted %s", dir)
	}

	util.SuccessLog("Cleanup complete: %d deleted, %d failed, %s reclaimed",
		result.Succeeded, result.Failed, util.FormatBytes(reclaimed))
	return result, nil
}

// dirSize sums file sizes under a directory; best effort, walk errors count
// as zero.
func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// moveDir moves a directory, preferring rename and falling back to
// copy-then-remove across filesystems.
func (m *Manager) moveDir(src, dst string) error {
	if err := util.RetryableMkdirAll(filepath.Dir(dst), 0755, m.cfg.RetryConfig); err != nil {
		return err
	}

	same, err := util.IsSameFilesystem(src, filepath.Dir(dst))
	if err == nil && same {
		if err := util.RetryableRename(src, dst, m.cfg.RetryConfig); err == nil {
			return nil
		}
	}

	// Different filesystem: copy the tree, then remove the source
	if err := copyTree(src, dst); err != nil {
		os.RemoveAll(dst)
		return err
	}
	return util.RetryableRemoveAll(src, m.cfg.RetryConfig)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Write to a .part temp first so a failed copy never leaves a
	// plausible-looking file behind
	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dst)
}
