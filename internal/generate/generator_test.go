package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/randysalars/dreamweaving-publisher/internal/shorts"
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

// fakeGeneratorScript writes the expected artifacts into the session dir
// passed as $0.
const fakeGeneratorScript = `
mkdir -p "$0"
echo "fake video" > "$0/session.mp4"
cat > "$0/publish.json" <<'EOF'
{"title":"Test Session","description":"desc","tags":["calm","sleep"],"quality_score":8.2,"loudness_lufs":-16.5,"word_count":1200}
EOF
`

func newTestGenerator(t *testing.T, st *store.Store, command []string) *Generator {
	t.Helper()

	pipeline := shorts.NewPipeline(shorts.PipelineConfig{})
	gen, err := New(st, pipeline, Config{
		SessionsDir: t.TempDir(),
		Command:     command,
	})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	return gen
}

func TestRunRecordsCompletion(t *testing.T) {
	st := openTestStore(t, "test-generate.db")
	gen := newTestGenerator(t, st, []string{"/bin/sh", "-c", fakeGeneratorScript})

	session, err := gen.Run(context.Background(), "", "Deep ocean drift", "seed-list")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if session.Name != "deep-ocean-drift" {
		t.Errorf("expected slugged name, got %q", session.Name)
	}
	if session.Status != store.StatusComplete {
		t.Errorf("expected complete status, got %q", session.Status)
	}
	if session.Title != "Test Session" {
		t.Errorf("expected payload title, got %q", session.Title)
	}
	if session.QualityScore != 8.2 {
		t.Errorf("expected quality 8.2, got %v", session.QualityScore)
	}
	if session.Tags != "calm,sleep" {
		t.Errorf("expected joined tags, got %q", session.Tags)
	}
	if _, err := os.Stat(session.VideoPath); err != nil {
		t.Errorf("expected video artifact on disk: %v", err)
	}

	used, err := st.IsTopicUsed("Deep ocean drift", "seed-list")
	if err != nil {
		t.Fatal(err)
	}
	if !used {
		t.Error("expected topic claimed in the ledger")
	}
}

func TestRunRejectsUsedTopic(t *testing.T) {
	st := openTestStore(t, "test-generate-dup.db")
	gen := newTestGenerator(t, st, []string{"/bin/sh", "-c", fakeGeneratorScript})

	if _, err := gen.Run(context.Background(), "first", "repeat topic", "src"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	_, err := gen.Run(context.Background(), "second", "repeat topic", "src")
	if !errors.Is(err, util.ErrDuplicateTopic) {
		t.Fatalf("expected ErrDuplicateTopic, got %v", err)
	}

	// Same topic from a different source is allowed
	if _, err := gen.Run(context.Background(), "third", "repeat topic", "other"); err != nil {
		t.Errorf("different source must be accepted: %v", err)
	}
}

func TestRunMarksFailureOnCommandError(t *testing.T) {
	st := openTestStore(t, "test-generate-fail.db")
	gen := newTestGenerator(t, st, []string{"/bin/sh", "-c", "exit 3"})

	_, err := gen.Run(context.Background(), "doomed", "topic x", "src")
	if err == nil {
		t.Fatal("expected error from failing generator")
	}

	session, err := st.GetSession("doomed")
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != store.StatusFailed {
		t.Errorf("expected failed status, got %q", session.Status)
	}
}

func TestRunMarksFailureOnMissingArtifacts(t *testing.T) {
	st := openTestStore(t, "test-generate-empty.db")
	// Command succeeds but produces nothing
	gen := newTestGenerator(t, st, []string{"/bin/sh", "-c", "true"})

	_, err := gen.Run(context.Background(), "hollow", "topic y", "src")
	if !errors.Is(err, util.ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}

	session, _ := st.GetSession("hollow")
	if session.Status != store.StatusFailed {
		t.Errorf("expected failed status, got %q", session.Status)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Deep Ocean Drift", "deep-ocean-drift"},
		{"  Already--slugged  ", "already-slugged"},
		{"Émotions & Rêves", "motions-r-ves"},
		{"123 go", "123-go"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadPayload(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "publish.json")
	if err := os.WriteFile(path, []byte(`{"title":"T","quality_score":5}`), 0644); err != nil {
		t.Fatal(err)
	}
	payload, err := readPayload(path)
	if err != nil {
		t.Fatalf("failed to read payload: %v", err)
	}
	if payload.Title != "T" || payload.QualityScore != 5 {
		t.Errorf("unexpected payload %+v", payload)
	}

	if _, err := readPayload(filepath.Join(dir, "missing.json")); !errors.Is(err, util.ErrMissingArtifact) {
		t.Errorf("expected ErrMissingArtifact, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{nope"), 0644)
	if _, err := readPayload(bad); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
