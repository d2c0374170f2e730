package shorts

import (
	"testing"
	"time"
)

func sec(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func TestSelectSegmentPrefersKeywordDenseWindow(t *testing.T) {
	cfg := DefaultSelectorConfig()
	captions := []Caption{
		{Start: sec(5), End: sec(10), Text: "Welcome to this session"},
		{Start: sec(30), End: sec(40), Text: "Settle in and get comfortable"},
		{Start: sec(120), End: sec(130), Text: "Imagine a powerful transformation"},
		{Start: sec(140), End: sec(150), Text: "Let your mind journey deeper"},
		{Start: sec(200), End: sec(210), Text: "And now slowly return"},
	}

	window := SelectSegment(captions, sec(300), cfg)

	if window.Start != sec(120) {
		t.Errorf("expected window starting at the keyword-dense caption, got %v", window.Start)
	}
	if window.End != sec(180) {
		t.Errorf("expected a %v window, got end %v", cfg.ClipDuration, window.End)
	}
	if window.Score <= 0 {
		t.Errorf("expected a positive score, got %d", window.Score)
	}
}

func TestSelectSegmentTiesResolveToEarliest(t *testing.T) {
	cfg := DefaultSelectorConfig()
	// Two windows with identical content past the warmup offset
	captions := []Caption{
		{Start: sec(90), End: sec(95), Text: "imagine"},
		{Start: sec(200), End: sec(205), Text: "imagine"},
	}

	first := SelectSegment(captions, sec(600), cfg)
	second := SelectSegment(captions, sec(600), cfg)

	if first.Start != sec(90) {
		t.Errorf("expected the earliest of tied windows, got %v", first.Start)
	}
	if first != second {
		t.Errorf("selection must be deterministic: %+v vs %+v", first, second)
	}
}

func TestSelectSegmentPenalizesWarmup(t *testing.T) {
	cfg := DefaultSelectorConfig()
	// Keyword hit inside the warmup vs a plain caption after it
	captions := []Caption{
		{Start: sec(10), End: sec(15), Text: "imagine discover unlock"},
		{Start: sec(80), End: sec(85), Text: "relax and focus your mind"},
	}

	window := SelectSegment(captions, sec(300), cfg)

	if window.Start != sec(80) {
		t.Errorf("expected the post-warmup window despite fewer keywords, got start %v", window.Start)
	}
}

func TestSelectSegmentNoTranscriptFallsBack(t *testing.T) {
	cfg := DefaultSelectorConfig()

	window := SelectSegment(nil, sec(600), cfg)
	if window.Start != cfg.FallbackOffset {
		t.Errorf("expected fallback offset %v, got %v", cfg.FallbackOffset, window.Start)
	}
	if window.End != cfg.FallbackOffset+cfg.ClipDuration {
		t.Errorf("unexpected window end %v", window.End)
	}

	// Asset too short for the fallback offset: clamp toward the start
	window = SelectSegment(nil, sec(100), cfg)
	if window.Start != sec(40) || window.End != sec(100) {
		t.Errorf("expected clamped window [40s,100s], got [%v,%v]", window.Start, window.End)
	}

	// Asset shorter than the clip itself
	window = SelectSegment(nil, sec(45), cfg)
	if window.Start != 0 {
		t.Errorf("expected window from the start of a short asset, got %v", window.Start)
	}
}

func TestSelectSegmentAllCaptionsTooLate(t *testing.T) {
	cfg := DefaultSelectorConfig()
	captions := []Caption{
		{Start: sec(280), End: sec(290), Text: "imagine the journey"},
	}

	window := SelectSegment(captions, sec(300), cfg)
	if window.Start != sec(240) || window.End != sec(300) {
		t.Errorf("expected the final full window [240s,300s], got [%v,%v]", window.Start, window.End)
	}
}

func TestScoreWindowCountsOverlappingCaptionsOnly(t *testing.T) {
	high := keywordSet([]string{"imagine"})
	medium := keywordSet([]string{"relax"})

	captions := []Caption{
		{Start: sec(0), End: sec(10), Text: "imagine"},   // before window
		{Start: sec(55), End: sec(65), Text: "relax"},    // straddles window start
		{Start: sec(70), End: sec(80), Text: "imagine"},  // inside
		{Start: sec(120), End: sec(130), Text: "imagine"}, // at window end, excluded
	}

	score := scoreWindow(captions, sec(60), sec(120), high, medium)
	if score != 3 {
		t.Errorf("expected score 3 (one high + one medium), got %d", score)
	}
}

func TestTokenize(t *testing.T) {
	words := tokenize("Imagine, a POWERFUL breakthrough - you're ready!")
	want := []string{"imagine", "a", "powerful", "breakthrough", "you're", "ready"}
	if len(words) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(words), words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], words[i])
		}
	}
}
