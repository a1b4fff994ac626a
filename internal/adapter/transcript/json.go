package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsonSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
}

type jsonTranscript struct {
	Text     string        `json:"text"`
	Segments []jsonSegment `json:"segments"`
}

// ParseJSON accepts whisper-style output ({"segments": [...]}) or a bare array
// of {"start", "end", "text"} records. A document with only "text" becomes one
// untimed frame.
func ParseJSON(data []byte) ([]Frame, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return []Frame{}, nil
	}

	var segments []jsonSegment
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &segments); err != nil {
			return nil, fmt.Errorf("failed to parse transcript array: %w", err)
		}
	} else {
		var doc jsonTranscript
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse transcript: %w", err)
		}
		segments = doc.Segments
		if len(segments) == 0 && doc.Text != "" {
			return []Frame{{Text: doc.Text}}, nil
		}
	}

	frames := make([]Frame, 0, len(segments))
	var prev float64
	for i, s := range segments {
		if s.Start != nil {
			if *s.Start < prev {
				return nil, fmt.Errorf("transcript segment %d starts at %.3f before previous start %.3f", i, *s.Start, prev)
			}
			prev = *s.Start
		}
		frames = append(frames, Frame{Text: s.Text, Start: s.Start, End: s.End})
	}
	return frames, nil
}
