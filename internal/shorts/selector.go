package shorts

import (
	"strings"
	"time"
)

// Scoring weights for candidate windows
const (
	highKeywordPoints   = 2
	mediumKeywordPoints = 1
	pastWarmupBonus     = 3
	placementPenalty    = 3
)

// SelectorConfig controls segment selection
type SelectorConfig struct {
	ClipDuration   time.Duration // target short length
	WarmupOffset   time.Duration // content before this is treated as introduction
	TailBuffer     time.Duration // avoid windows starting this close to the end
	FallbackOffset time.Duration // start offset when no transcript exists

	HighKeywords   []string // worth 2 points per hit
	MediumKeywords []string // worth 1 point per hit
}

// DefaultSelectorConfig returns selector defaults tuned for narrated
// guided-session content.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		ClipDuration:   60 * time.Second,
		WarmupOffset:   60 * time.Second,
		TailBuffer:     30 * time.Second,
		FallbackOffset: 90 * time.Second,
		HighKeywords: []string{
			"imagine", "transform", "discover", "secret", "unlock",
			"powerful", "breakthrough", "incredible",
		},
		MediumKeywords: []string{
			"relax", "journey", "dream", "energy", "focus",
			"deep", "vision", "awaken", "mind",
		},
	}
}

// Window is the selected sub-range of the source asset
type Window struct {
	Start time.Duration
	End   time.Duration
	Score int
}

// SelectSegment chooses the most engaging fixed-length window of the asset.
// Candidate windows start at each caption boundary; the highest score wins
// and ties resolve to the earliest start, so selection is deterministic.
// Without a transcript it falls back to a fixed offset near the start.
func SelectSegment(captions []Caption, total time.Duration, cfg SelectorConfig) Window {
	if cfg.ClipDuration <= 0 {
		cfg = DefaultSelectorConfig()
	}

	if len(captions) == 0 {
		start := cfg.FallbackOffset
		if start+cfg.ClipDuration > total {
			start = total - cfg.ClipDuration
		}
		if start < 0 {
			start = 0
		}
		return Window{Start: start, End: start + cfg.ClipDuration}
	}

	high := keywordSet(cfg.HighKeywords)
	medium := keywordSet(cfg.MediumKeywords)

	best := Window{Start: -1}
	for _, c := range captions {
		start := c.Start
		if start+cfg.ClipDuration > total {
			continue
		}

		score := scoreWindow(captions, start, start+cfg.ClipDuration, high, medium)

		if start >= cfg.WarmupOffset {
			score += pastWarmupBonus
		} else {
			score -= placementPenalty
		}
		if total-start <= cfg.TailBuffer+cfg.ClipDuration {
			score -= placementPenalty
		}

		if best.Start < 0 || score > best.Score {
			best = Window{Start: start, End: start + cfg.ClipDuration, Score: score}
		}
	}

	if best.Start < 0 {
		// Every caption starts too late for a full window
		start := total - cfg.ClipDuration
		if start < 0 {
			start = 0
		}
		end := start + cfg.ClipDuration
		if end > total {
			end = total
		}
		return Window{Start: start, End: end}
	}

	return best
}

// scoreWindow sums keyword points over all captions overlapping the window
func scoreWindow(captions []Caption, start, end time.Duration, high, medium map[string]bool) int {
	score := 0
	for _, c := range captions {
		if c.End <= start || c.Start >= end {
			continue
		}
		for _, word := range tokenize(c.Text) {
			if high[word] {
				score += highKeywordPoints
			} else if medium[word] {
				score += mediumKeywordPoints
			}
		}
	}
	return score
}

func keywordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

// tokenize lowercases and splits caption text into bare words
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
	return fields
}
