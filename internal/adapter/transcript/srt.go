package transcript

import (
	"strconv"
	"strings"
)

// ParseSRT parses SRT (and WebVTT) cues into frames, one per text line.
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
func ParseSRT(content string) []Frame {
	if content == "" {
		return []Frame{}
	}

	var frames []Frame
	var start, end *float64

	lines := strings.Split(strings.TrimPrefix(content, "\ufeff"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" || line == "WEBVTT" || strings.HasPrefix(line, "NOTE") {
			continue
		}
		// A cue index only counts as one when its timing line follows.
		if isDigitOnly(line) && i+1 < len(lines) && strings.Contains(lines[i+1], "-->") {
			continue
		}

		if strings.Contains(line, "-->") {
			parts := strings.SplitN(line, "-->", 2)
			start = parseTimestamp(parts[0])
			// WebVTT puts cue settings after the end time.
			end = parseTimestamp(firstField(parts[1]))
			continue
		}

		frames = append(frames, Frame{Text: line, Start: start, End: end})
	}

	return frames
}

// parseTimestamp accepts HH:MM:SS,mmm, HH:MM:SS.mmm and MM:SS.mmm.
func parseTimestamp(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil
		}
		total = total*60 + v
	}
	return &total
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
