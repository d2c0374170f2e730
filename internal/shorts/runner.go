package shorts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/report"
	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
	"github.com/randysalars/dreamweaving-publisher/internal/youtube"
)

// Uploader publishes the rendered short. *youtube.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, req *youtube.UploadRequest) (string, error)
}

// Advisor answers whether now is a good time to publish a short
type Advisor interface {
	ShouldPublishNow(ctx context.Context, kind store.UploadKind) bool
}

// RunnerConfig holds shorts-run configuration
type RunnerConfig struct {
	Selector SelectorConfig
	DryRun   bool
}

// Runner drives the shorts flow for one session: pick the candidate, choose
// the segment, render the clip, publish it, record the outcome.
type Runner struct {
	store    *store.Store
	pipeline *Pipeline
	uploader Uploader
	advisor  Advisor
	logger   *report.EventLogger
	cfg      RunnerConfig
}

// NewRunner creates a Runner. advisor and logger may be nil.
func NewRunner(st *store.Store, pipeline *Pipeline, uploader Uploader, advisor Advisor, logger *report.EventLogger, cfg RunnerConfig) *Runner {
	if cfg.Selector.ClipDuration <= 0 {
		cfg.Selector = DefaultSelectorConfig()
	}
	return &Runner{
		store:    st,
		pipeline: pipeline,
		uploader: uploader,
		advisor:  advisor,
		logger:   logger,
		cfg:      cfg,
	}
}

// Result summarizes one shorts run
type Result struct {
	EmptyQueue bool
	DryRun     bool
	Session    string
	ShortPath  string
	VideoID    string
	URL        string
	Window     Window
}

// RunOnce creates and uploads a short for the best eligible session.
// Eligibility: public on the site, not yet on the platform, shorts not yet
// uploaded. Website-only content drives traffic to the full upload later.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	candidate, err := r.store.NextShortsCandidate()
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		util.InfoLog("No sessions eligible for shorts")
		return &Result{EmptyQueue: true}, nil
	}

	util.InfoLog("Selected session %q for short creation (quality %.1f)",
		candidate.Name, candidate.QualityScore)

	window, err := r.selectWindow(ctx, candidate)
	if err != nil {
		return nil, err
	}

	util.InfoLog("Segment: %v - %v (score %d)",
		window.Start.Round(time.Second), window.End.Round(time.Second), window.Score)

	shortPath := filepath.Join(filepath.Dir(candidate.VideoPath), candidate.Name+"-short.mp4")

	if r.cfg.DryRun {
		util.InfoLog("DRY-RUN: would render %s and upload it", shortPath)
		return &Result{DryRun: true, Session: candidate.Name, ShortPath: shortPath, Window: window}, nil
	}

	if err := r.pipeline.Create(ctx, candidate.VideoPath, window, shortPath); err != nil {
		if r.logger != nil {
			r.logger.LogShort(candidate.Name, shortPath, "", err)
		}
		return nil, fmt.Errorf("short pipeline failed for session %s: %w", candidate.Name, err)
	}

	now := time.Now()
	created := true
	if err := r.store.Transition(candidate.Name, store.SessionUpdate{
		ShortsCreated:   &created,
		ShortPath:       &shortPath,
		ShortsCreatedAt: &now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record short creation: %w", err)
	}

	if r.advisor != nil && !r.advisor.ShouldPublishNow(ctx, store.KindShort) {
		util.WarnLog("Outside the optimal publish window for shorts, uploading anyway")
	}

	req := &youtube.UploadRequest{
		FilePath:      shortPath,
		Title:         candidate.Title,
		Description:   r.shortDescription(candidate),
		Tags:          candidate.TagList(),
		PrivacyStatus: "public",
		IsShort:       true,
	}
	if req.Title == "" {
		req.Title = candidate.Name
	}

	videoID, uploadErr := r.uploader.Upload(ctx, req)

	if r.logger != nil {
		r.logger.LogShort(candidate.Name, shortPath, videoID, uploadErr)
	}

	if uploadErr != nil {
		rec := &store.UploadRecord{
			SessionID: candidate.ID,
			Kind:      store.KindShort,
			Success:   false,
			Error:     uploadErr.Error(),
		}
		if err := r.store.AppendUpload(rec); err != nil {
			util.ErrorLog("Failed to record short upload failure: %v", err)
		}
		return &Result{Session: candidate.Name, ShortPath: shortPath, Window: window},
			fmt.Errorf("short upload failed for session %s: %w", candidate.Name, uploadErr)
	}

	url := youtube.ShortURL(videoID)
	uploaded := true
	uploadedAt := time.Now()
	if err := r.store.Transition(candidate.Name, store.SessionUpdate{
		ShortsUploaded:   &uploaded,
		ShortYouTubeID:   &videoID,
		ShortsUploadedAt: &uploadedAt,
	}); err != nil {
		return nil, fmt.Errorf("uploaded short %s but failed to record it: %w", videoID, err)
	}

	rec := &store.UploadRecord{
		SessionID: candidate.ID,
		Kind:      store.KindShort,
		Success:   true,
		YouTubeID: videoID,
		URL:       url,
	}
	if err := r.store.AppendUpload(rec); err != nil {
		util.WarnLog("Failed to record short upload success: %v", err)
	}

	util.SuccessLog("Short uploaded for session %q: %s", candidate.Name, url)

	return &Result{
		Session:   candidate.Name,
		ShortPath: shortPath,
		VideoID:   videoID,
		URL:       url,
		Window:    window,
	}, nil
}

// selectWindow loads the transcript (when present) and scores candidate
// windows; a missing transcript falls back to the fixed-offset window.
func (r *Runner) selectWindow(ctx context.Context, candidate *store.Session) (Window, error) {
	total := time.Duration(candidate.DurationSec * float64(time.Second))
	if total <= 0 {
		probed, err := r.pipeline.ProbeDuration(ctx, candidate.VideoPath)
		if err != nil {
			return Window{}, fmt.Errorf("cannot determine duration of %s: %w", candidate.VideoPath, err)
		}
		total = probed
	}

	var captions []Caption
	if candidate.TranscriptPath != "" {
		parsed, err := ParseSRTFile(candidate.TranscriptPath)
		if err != nil {
			util.WarnLog("Transcript unreadable for %s, falling back to fixed offset: %v",
				candidate.Name, err)
		} else {
			captions = parsed
		}
	}

	return SelectSegment(captions, total, r.cfg.Selector), nil
}

// shortDescription builds the short's description, pointing viewers at the
// canonical session location.
func (r *Runner) shortDescription(candidate *store.Session) string {
	var b strings.Builder
	if candidate.Description != "" {
		b.WriteString(candidate.Description)
	}
	if candidate.SiteURL != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Full session: ")
		b.WriteString(candidate.SiteURL)
	}
	return b.String()
}
