package main

import (
	"context"
	"time"

	"github.com/spf13/viper"

	"github.com/randysalars/dreamweaving-publisher/internal/analytics"
	"github.com/randysalars/dreamweaving-publisher/internal/archive"
	"github.com/randysalars/dreamweaving-publisher/internal/report"
	"github.com/randysalars/dreamweaving-publisher/internal/shorts"
	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
	"github.com/randysalars/dreamweaving-publisher/internal/youtube"
)

// GetConfigString retrieves a string config value with flag > env > file >
// default precedence
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with the same precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

func openStore() (*store.Store, error) {
	dbPath := GetConfigString("db", "dreamweaving.db")
	util.DebugLog("Opening database: %s", dbPath)
	return store.Open(dbPath)
}

func newEventLogger() *report.EventLogger {
	logger, err := report.NewEventLogger(GetConfigString("artifacts_dir", "artifacts"))
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	return logger
}

func newYouTubeClient(ctx context.Context) (*youtube.Client, error) {
	return youtube.NewClient(ctx, &youtube.Config{
		ClientID:      viper.GetString("youtube.client_id"),
		ClientSecret:  viper.GetString("youtube.client_secret"),
		TokenFile:     GetConfigString("youtube.token_file", "youtube-token.json"),
		UploadTimeout: time.Duration(GetConfigInt("upload.timeout_min", 10)) * time.Minute,
		RetryConfig: &util.RetryConfig{
			MaxAttempts: GetConfigInt("upload.retry_attempts", 3),
			InitialWait: 5 * time.Second,
			MaxWait:     30 * time.Second,
			Linear:      true,
		},
	})
}

func newOptimizer(st *store.Store, source analytics.Source) *analytics.Optimizer {
	loc := time.Local
	if tz := viper.GetString("timezone"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			util.WarnLog("Invalid timezone %q, using local: %v", tz, err)
		} else {
			loc = parsed
		}
	}

	return analytics.New(st, source, &analytics.Config{
		CacheTTL: time.Duration(GetConfigInt("analytics.cache_ttl_days", 7)) * 24 * time.Hour,
		Location: loc,
	})
}

func selectorConfig() shorts.SelectorConfig {
	cfg := shorts.DefaultSelectorConfig()
	cfg.ClipDuration = time.Duration(GetConfigInt("shorts.clip_duration_sec", 60)) * time.Second
	cfg.WarmupOffset = time.Duration(GetConfigInt("shorts.warmup_offset_sec", 60)) * time.Second
	cfg.TailBuffer = time.Duration(GetConfigInt("shorts.tail_buffer_sec", 30)) * time.Second
	cfg.FallbackOffset = time.Duration(GetConfigInt("shorts.fallback_offset_sec", 90)) * time.Second

	if high := viper.GetStringSlice("shorts.high_keywords"); len(high) > 0 {
		cfg.HighKeywords = high
	}
	if medium := viper.GetStringSlice("shorts.medium_keywords"); len(medium) > 0 {
		cfg.MediumKeywords = medium
	}
	return cfg
}

func newPipeline() *shorts.Pipeline {
	return shorts.NewPipeline(shorts.PipelineConfig{
		FFmpegPath:   GetConfigString("ffmpeg_path", "ffmpeg"),
		FFprobePath:  GetConfigString("ffprobe_path", "ffprobe"),
		StageTimeout: time.Duration(GetConfigInt("shorts.stage_timeout_min", 5)) * time.Minute,
		CTAText:      viper.GetString("shorts.cta_text"),
		CTASeconds:   GetConfigInt("shorts.cta_seconds", 5),
	})
}

func newArchiveManager(st *store.Store, logger *report.EventLogger, dryRun bool) (*archive.Manager, error) {
	return archive.New(st, logger, archive.Config{
		SessionsDir: GetConfigString("sessions_dir", "sessions"),
		ArchiveDir:  GetConfigString("archive_dir", "archive"),
		DryRun:      dryRun,
	})
}
