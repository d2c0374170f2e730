package schedule

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
	"github.com/randysalars/dreamweaving-publisher/internal/youtube"
)

type fakeUploader struct {
	videoID    string
	uploadErr  error
	uploads    []*youtube.UploadRequest
	thumbnails []string
}

func (f *fakeUploader) Upload(ctx context.Context, req *youtube.UploadRequest) (string, error) {
	f.uploads = append(f.uploads, req)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.videoID, nil
}

func (f *fakeUploader) SetThumbnail(ctx context.Context, videoID, filePath string) error {
	f.thumbnails = append(f.thumbnails, filePath)
	return nil
}

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

// readySession creates a complete session whose video file actually exists
func readySession(t *testing.T, st *store.Store, name string, quality float64) int64 {
	t.Helper()

	video := filepath.Join(t.TempDir(), name+".mp4")
	if err := os.WriteFile(video, []byte("fake video"), 0644); err != nil {
		t.Fatalf("failed to write video: %v", err)
	}

	id, err := st.CreateSession(name, "topic "+name, "test")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	complete := store.StatusComplete
	title := "Title for " + name
	if err := st.Transition(name, store.SessionUpdate{
		Status:       &complete,
		VideoPath:    &video,
		Title:        &title,
		QualityScore: &quality,
	}); err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}
	return id
}

func TestRunOnceUploadsAndRecords(t *testing.T) {
	st := openTestStore(t, "test-scheduler.db")
	id := readySession(t, st, "alpha", 8.0)

	uploader := &fakeUploader{videoID: "vid-abc"}
	scheduler := New(st, uploader, nil, nil, Config{})

	result, err := scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Session != "alpha" || result.VideoID != "vid-abc" {
		t.Errorf("unexpected result %+v", result)
	}

	if len(uploader.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(uploader.uploads))
	}
	if uploader.uploads[0].Title != "Title for alpha" {
		t.Errorf("unexpected upload title %q", uploader.uploads[0].Title)
	}
	if uploader.uploads[0].IsShort {
		t.Error("long-form upload must not be flagged as a short")
	}

	session, err := st.GetSession("alpha")
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if !session.UploadedToPlatform || session.YouTubeID != "vid-abc" {
		t.Errorf("expected session marked uploaded, got %+v", session)
	}

	records, err := st.UploadsForSession(id)
	if err != nil {
		t.Fatalf("failed to query history: %v", err)
	}
	if len(records) != 1 || !records[0].Success {
		t.Fatalf("expected one success record, got %+v", records)
	}

	// The queue is now empty; a second run is a no-op
	result, err = scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !result.EmptyQueue {
		t.Error("expected empty queue after the only session was published")
	}
}

func TestRunOnceFailureKeepsSessionEligible(t *testing.T) {
	st := openTestStore(t, "test-scheduler-fail.db")
	id := readySession(t, st, "beta", 5.0)

	uploader := &fakeUploader{uploadErr: errors.New("quota exceeded")}
	scheduler := New(st, uploader, nil, nil, Config{})

	_, err := scheduler.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected upload error")
	}

	session, _ := st.GetSession("beta")
	if session.UploadedToPlatform {
		t.Error("failed upload must not mark the session uploaded")
	}

	records, err := st.UploadsForSession(id)
	if err != nil {
		t.Fatalf("failed to query history: %v", err)
	}
	if len(records) != 1 || records[0].Success || records[0].Error == "" {
		t.Fatalf("expected exactly one failed record, got %+v", records)
	}

	// Still the next candidate
	candidate, err := st.NextCandidate(store.StrategyQuality)
	if err != nil {
		t.Fatalf("failed to query candidate: %v", err)
	}
	if candidate == nil || candidate.Name != "beta" {
		t.Errorf("session must stay eligible after a failed upload, got %+v", candidate)
	}
}

func TestRunOnceMissingArtifact(t *testing.T) {
	st := openTestStore(t, "test-scheduler-missing.db")

	if _, err := st.CreateSession("ghost", "topic", ""); err != nil {
		t.Fatal(err)
	}
	complete := store.StatusComplete
	video := filepath.Join(t.TempDir(), "does-not-exist.mp4")
	quality := 5.0
	if err := st.Transition("ghost", store.SessionUpdate{
		Status: &complete, VideoPath: &video, QualityScore: &quality,
	}); err != nil {
		t.Fatal(err)
	}

	uploader := &fakeUploader{videoID: "vid-x"}
	scheduler := New(st, uploader, nil, nil, Config{})

	_, err := scheduler.RunOnce(context.Background())
	if !errors.Is(err, util.ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}
	if len(uploader.uploads) != 0 {
		t.Error("missing artifact must fail before any upload attempt")
	}
}

func TestRunOnceDryRun(t *testing.T) {
	st := openTestStore(t, "test-scheduler-dry.db")
	readySession(t, st, "gamma", 6.0)

	uploader := &fakeUploader{videoID: "vid-y"}
	scheduler := New(st, uploader, nil, nil, Config{DryRun: true})

	result, err := scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !result.DryRun || result.Session != "gamma" {
		t.Errorf("unexpected result %+v", result)
	}
	if len(uploader.uploads) != 0 {
		t.Error("dry run must not upload")
	}

	session, _ := st.GetSession("gamma")
	if session.UploadedToPlatform {
		t.Error("dry run must not change state")
	}
}

func TestRunOncePicksHighestQuality(t *testing.T) {
	st := openTestStore(t, "test-scheduler-order.db")
	readySession(t, st, "mediocre", 4.0)
	readySession(t, st, "best", 9.5)

	uploader := &fakeUploader{videoID: "vid-z"}
	scheduler := New(st, uploader, nil, nil, Config{Strategy: store.StrategyQuality})

	result, err := scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Session != "best" {
		t.Errorf("expected the highest-quality session, got %q", result.Session)
	}
}
