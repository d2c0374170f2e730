package shorts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// PipelineConfig controls the media transform stages
type PipelineConfig struct {
	FFmpegPath   string        // default "ffmpeg"
	FFprobePath  string        // default "ffprobe"
	StageTimeout time.Duration // ceiling per transform stage (default 5m)
	CTAText      string        // call-to-action burned into the final seconds
	CTASeconds   int           // overlay duration at the clip's end (default 5)
}

// Pipeline drives the fixed three-stage transform: extract, vertical
// reformat, trailing call-to-action overlay. Any stage failure aborts the
// pipeline and leaves no partial artifacts.
type Pipeline struct {
	cfg PipelineConfig
}

// NewPipeline creates a Pipeline with defaults resolved
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 5 * time.Minute
	}
	if cfg.CTASeconds <= 0 {
		cfg.CTASeconds = 5
	}
	return &Pipeline{cfg: cfg}
}

// Create renders a vertical short from the window of srcPath into outPath.
// Intermediate files live in a temp dir removed on return; outPath appears
// only if every stage succeeded.
func (p *Pipeline) Create(ctx context.Context, srcPath string, window Window, outPath string) error {
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("%w: %s", util.ErrMissingArtifact, srcPath)
	}

	workDir, err := os.MkdirTemp(filepath.Dir(outPath), ".short-work-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	clipLen := window.End - window.Start
	extracted := filepath.Join(workDir, "extract.mp4")
	vertical := filepath.Join(workDir, "vertical.mp4")
	final := filepath.Join(workDir, "final.mp4")

	// Stage 1: fixed-duration extraction
	if err := p.runStage(ctx, "extract",
		"-y",
		"-ss", formatSeconds(window.Start),
		"-i", srcPath,
		"-t", formatSeconds(clipLen),
		"-c:v", "libx264", "-preset", "fast",
		"-c:a", "aac",
		extracted,
	); err != nil {
		return err
	}

	// Stage 2: 16:9 -> 9:16, blurred cropped copy behind a width-fit copy
	if err := p.runStage(ctx, "reformat",
		"-y",
		"-i", extracted,
		"-filter_complex",
		"[0:v]scale=1080:1920:force_original_aspect_ratio=increase,"+
			"crop=1080:1920,boxblur=20:5[bg];"+
			"[0:v]scale=1080:-2[fg];"+
			"[bg][fg]overlay=(W-w)/2:(H-h)/2",
		"-c:a", "copy",
		vertical,
	); err != nil {
		return err
	}

	// Stage 3: trailing call-to-action overlay
	cta := p.cfg.CTAText
	if cta == "" {
		cta = "Full session on the channel"
	}
	enableFrom := clipLen.Seconds() - float64(p.cfg.CTASeconds)
	if enableFrom < 0 {
		enableFrom = 0
	}
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=56:box=1:boxcolor=black@0.6:"+
			"boxborderw=16:x=(w-text_w)/2:y=h-th-160:enable='gte(t,%s)'",
		escapeDrawtext(cta), strconv.FormatFloat(enableFrom, 'f', 2, 64))

	if err := p.runStage(ctx, "overlay",
		"-y",
		"-i", vertical,
		"-vf", drawtext,
		"-c:a", "copy",
		final,
	); err != nil {
		return err
	}

	// The output appears atomically; the work dir cleanup removes everything
	// else whether or not this rename succeeds.
	if err := os.Rename(final, outPath); err != nil {
		return fmt.Errorf("failed to finalize short: %w", err)
	}

	util.DebugLog("Short created: %s [%s - %s]", outPath,
		formatSeconds(window.Start), formatSeconds(window.End))
	return nil
}

// runStage executes one ffmpeg invocation under the per-stage timeout
func (p *Pipeline) runStage(ctx context.Context, name string, args ...string) error {
	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	util.DebugLog("ffmpeg %s: %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(stageCtx, p.cfg.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if stageCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg %s stage timed out after %v", name, p.cfg.StageTimeout)
		}
		return fmt.Errorf("ffmpeg %s stage failed: %w: %s", name, err, tail(string(output), 400))
	}
	return nil
}

// ProbeDuration returns the duration of a media file via ffprobe
func (p *Pipeline) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.cfg.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", probe.Format.Duration, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// escapeDrawtext escapes characters with meaning inside a drawtext filter
func escapeDrawtext(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(text)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
