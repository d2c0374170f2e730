package schedule

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/report"
	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
	"github.com/randysalars/dreamweaving-publisher/internal/youtube"
)

// Uploader publishes a video file to the platform. *youtube.Client
// satisfies it.
type Uploader interface {
	Upload(ctx context.Context, req *youtube.UploadRequest) (string, error)
	SetThumbnail(ctx context.Context, videoID, filePath string) error
}

// Advisor answers whether now is a good time to publish. Advisory only:
// a negative answer is logged, never blocks a run.
type Advisor interface {
	ShouldPublishNow(ctx context.Context, kind store.UploadKind) bool
}

// Config holds scheduler configuration
type Config struct {
	Strategy store.Strategy
	Privacy  string // privacy status for long-form uploads
	DryRun   bool
}

// Scheduler picks one eligible session, publishes it and records the
// outcome. It never publishes the same session twice: success is recorded
// through the store's conditional MarkUploaded write.
type Scheduler struct {
	store    *store.Store
	uploader Uploader
	advisor  Advisor
	logger   *report.EventLogger
	cfg      Config
}

// New creates a Scheduler. advisor and logger may be nil.
func New(st *store.Store, uploader Uploader, advisor Advisor, logger *report.EventLogger, cfg Config) *Scheduler {
	if cfg.Strategy == "" {
		cfg.Strategy = store.StrategyQuality
	}
	if cfg.Privacy == "" {
		cfg.Privacy = "public"
	}
	return &Scheduler{
		store:    st,
		uploader: uploader,
		advisor:  advisor,
		logger:   logger,
		cfg:      cfg,
	}
}

// Result summarizes one scheduler run
type Result struct {
	EmptyQueue bool
	DryRun     bool
	Session    string
	VideoID    string
	URL        string
}

// RunOnce selects and publishes the next candidate. An empty queue is a
// normal outcome, not an error. An upload failure is recorded in the upload
// history and returned; the session stays eligible for the next run.
func (s *Scheduler) RunOnce(ctx context.Context) (*Result, error) {
	candidate, err := s.store.NextCandidate(s.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		util.InfoLog("Upload queue is empty (strategy: %s)", s.cfg.Strategy)
		return &Result{EmptyQueue: true}, nil
	}

	util.InfoLog("Selected session %q (quality %.1f, priority %d, strategy %s)",
		candidate.Name, candidate.QualityScore, candidate.Priority, s.cfg.Strategy)

	// Input error: the artifact must exist before any state is touched
	if _, err := os.Stat(candidate.VideoPath); err != nil {
		return nil, fmt.Errorf("%w: session %s video %s",
			util.ErrMissingArtifact, candidate.Name, candidate.VideoPath)
	}

	if s.advisor != nil && !s.advisor.ShouldPublishNow(ctx, store.KindLong) {
		// Soft preference only; a manually triggered run proceeds
		util.WarnLog("Outside the optimal publish window for long-form content, uploading anyway")
	}

	req := &youtube.UploadRequest{
		FilePath:      candidate.VideoPath,
		Title:         candidate.Title,
		Description:   candidate.Description,
		Tags:          candidate.TagList(),
		PrivacyStatus: s.cfg.Privacy,
	}
	if req.Title == "" {
		req.Title = candidate.Name
	}

	if s.cfg.DryRun {
		util.InfoLog("DRY-RUN: would upload %s (%q)", candidate.VideoPath, req.Title)
		return &Result{DryRun: true, Session: candidate.Name}, nil
	}

	started := time.Now()
	videoID, uploadErr := s.uploader.Upload(ctx, req)
	elapsed := time.Since(started)

	if s.logger != nil {
		s.logger.LogUpload(candidate.Name, string(store.KindLong), videoID, elapsed, uploadErr)
	}

	if uploadErr != nil {
		// Session stays unpublished and eligible for the next run
		rec := &store.UploadRecord{
			SessionID: candidate.ID,
			Kind:      store.KindLong,
			Success:   false,
			Error:     uploadErr.Error(),
		}
		if err := s.store.AppendUpload(rec); err != nil {
			util.ErrorLog("Failed to record upload failure: %v", err)
		}
		return &Result{Session: candidate.Name},
			fmt.Errorf("upload failed for session %s: %w", candidate.Name, uploadErr)
	}

	url := youtube.VideoURL(videoID)

	if err := s.store.MarkUploaded(candidate.Name, videoID, time.Now()); err != nil {
		// The video is live but the state write failed; surface loudly so the
		// operator can reconcile before the next run re-selects this session.
		return nil, fmt.Errorf("uploaded %s as %s but failed to record it: %w",
			candidate.Name, videoID, err)
	}

	rec := &store.UploadRecord{
		SessionID: candidate.ID,
		Kind:      store.KindLong,
		Success:   true,
		YouTubeID: videoID,
		URL:       url,
	}
	if err := s.store.AppendUpload(rec); err != nil {
		util.WarnLog("Failed to record upload success: %v", err)
	}

	if candidate.ThumbnailPath != "" {
		if err := s.uploader.SetThumbnail(ctx, videoID, candidate.ThumbnailPath); err != nil {
			util.WarnLog("Failed to set thumbnail for %s: %v", videoID, err)
		}
	}

	util.SuccessLog("Uploaded session %q: %s (%v)", candidate.Name, url, elapsed.Round(time.Second))

	return &Result{Session: candidate.Name, VideoID: videoID, URL: url}, nil
}
