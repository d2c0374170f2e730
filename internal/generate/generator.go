package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/shorts"
	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// Artifact filenames the external generator is expected to produce inside
// the session directory.
const (
	VideoFile      = "session.mp4"
	ThumbnailFile  = "thumbnail.jpg"
	TranscriptFile = "captions.srt"
	PayloadFile    = "publish.json"
)

// Payload is the publish metadata the generator writes alongside the video.
// The pipeline only transports it; content quality is the generator's
// problem.
type Payload struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	QualityScore float64  `json:"quality_score"`
	LoudnessLUFS float64  `json:"loudness_lufs"`
	WordCount    int      `json:"word_count"`
}

// Config holds generation-boundary configuration
type Config struct {
	SessionsDir string
	Command     []string      // external generator argv; receives session dir and topic
	Timeout     time.Duration // ceiling for one generation run (default 30m)
}

// Generator drives the external content generator for one session: claim
// the topic, run the collaborator, record the artifacts it produced.
type Generator struct {
	store    *store.Store
	pipeline *shorts.Pipeline // for ffprobe duration
	cfg      Config
}

// New creates a Generator
func New(st *store.Store, pipeline *shorts.Pipeline, cfg Config) (*Generator, error) {
	if cfg.SessionsDir == "" {
		return nil, fmt.Errorf("%w: sessions directory is required", util.ErrInvalidConfig)
	}
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("%w: generator command is required", util.ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &Generator{store: st, pipeline: pipeline, cfg: cfg}, nil
}

// Run creates a session for the topic, invokes the external generator and
// records completion or failure. The topic dedup ledger rejects topics
// already consumed for the same source.
func (g *Generator) Run(ctx context.Context, name, topic, source string) (*store.Session, error) {
	if used, err := g.store.IsTopicUsed(topic, source); err != nil {
		return nil, err
	} else if used {
		return nil, fmt.Errorf("%w: %q from source %q", util.ErrDuplicateTopic, topic, source)
	}

	if name == "" {
		name = Slugify(topic)
	}

	sessionID, err := g.store.CreateSession(name, topic, source)
	if err != nil {
		return nil, err
	}

	if err := g.store.ClaimTopic(topic, source, sessionID); err != nil {
		return nil, err
	}

	sessionDir := filepath.Join(g.cfg.SessionsDir, name)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	generating := store.StatusGenerating
	if err := g.store.Transition(name, store.SessionUpdate{Status: &generating}); err != nil {
		return nil, err
	}

	util.InfoLog("Generating session %q for topic %q", name, topic)

	if err := g.runGenerator(ctx, sessionDir, topic); err != nil {
		failed := store.StatusFailed
		if terr := g.store.Transition(name, store.SessionUpdate{Status: &failed}); terr != nil {
			util.ErrorLog("Failed to mark session failed: %v", terr)
		}
		return nil, fmt.Errorf("generation failed for session %s: %w", name, err)
	}

	if err := g.recordCompletion(ctx, name, sessionDir); err != nil {
		failed := store.StatusFailed
		if terr := g.store.Transition(name, store.SessionUpdate{Status: &failed}); terr != nil {
			util.ErrorLog("Failed to mark session failed: %v", terr)
		}
		return nil, err
	}

	util.SuccessLog("Session %q generated", name)
	return g.store.GetSession(name)
}

func (g *Generator) runGenerator(ctx context.Context, sessionDir, topic string) error {
	runCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	args := append(append([]string{}, g.cfg.Command[1:]...), sessionDir, topic)
	cmd := exec.CommandContext(runCtx, g.cfg.Command[0], args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("generator timed out after %v", g.cfg.Timeout)
		}
		return fmt.Errorf("generator command failed: %w", err)
	}
	return nil
}

// recordCompletion probes the generator's output artifacts and writes the
// completion transition: artifact paths, publish payload and quality
// metrics in one atomic update.
func (g *Generator) recordCompletion(ctx context.Context, name, sessionDir string) error {
	videoPath := filepath.Join(sessionDir, VideoFile)
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("%w: generator produced no %s", util.ErrMissingArtifact, VideoFile)
	}

	payload, err := readPayload(filepath.Join(sessionDir, PayloadFile))
	if err != nil {
		return err
	}

	duration, err := g.pipeline.ProbeDuration(ctx, videoPath)
	if err != nil {
		util.WarnLog("Could not probe duration of %s: %v", videoPath, err)
	}

	update := store.SessionUpdate{
		VideoPath:    &videoPath,
		Title:        &payload.Title,
		Description:  &payload.Description,
		QualityScore: &payload.QualityScore,
		LoudnessLUFS: &payload.LoudnessLUFS,
		WordCount:    &payload.WordCount,
	}

	complete := store.StatusComplete
	update.Status = &complete

	tags := strings.Join(payload.Tags, ",")
	update.Tags = &tags

	durationSec := duration.Seconds()
	update.DurationSec = &durationSec

	if thumb := filepath.Join(sessionDir, ThumbnailFile); fileExists(thumb) {
		update.ThumbnailPath = &thumb
	}
	if transcript := filepath.Join(sessionDir, TranscriptFile); fileExists(transcript) {
		update.TranscriptPath = &transcript
	}

	return g.store.Transition(name, update)
}

func readPayload(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: generator produced no %s", util.ErrMissingArtifact, PayloadFile)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", PayloadFile, err)
	}
	return &payload, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Slugify turns a topic into a filesystem- and URL-safe session name
func Slugify(topic string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
