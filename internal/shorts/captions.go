package shorts

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Caption is one time-aligned transcript cue
type Caption struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// ParseSRTFile parses a SubRip (.srt) transcript file
func ParseSRTFile(path string) ([]Caption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return parseSRT(lines)
}

func parseSRT(lines []string) ([]Caption, error) {
	var captions []Caption
	i := 0

	for i < len(lines) {
		// Skip blank lines between cues
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		// Cue index (optional in sloppy files)
		index := len(captions) + 1
		if n, err := strconv.Atoi(strings.TrimSpace(lines[i])); err == nil {
			index = n
			i++
		}
		if i >= len(lines) {
			break
		}

		start, end, err := parseTimingLine(lines[i])
		if err != nil {
			// Tolerate malformed cues rather than rejecting the transcript
			i++
			continue
		}
		i++

		var text []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			text = append(text, strings.TrimSpace(lines[i]))
			i++
		}

		captions = append(captions, Caption{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(text, " "),
		})
	}

	return captions, nil
}

// parseTimingLine parses "HH:MM:SS,mmm --> HH:MM:SS,mmm"
func parseTimingLine(line string) (start, end time.Duration, err error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("not a timing line: %q", line)
	}

	start, err = parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err = parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp parses "HH:MM:SS,mmm" (also tolerates '.' as the
// millisecond separator, as emitted by some caption tools)
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.ReplaceAll(ts, ".", ",")
	var h, m, s, ms int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
