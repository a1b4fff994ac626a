// Package transcript reads timestamped (or plain) transcripts into text units.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"topicseg/internal/domain"
)

// Frame is one piece of source text as the input format delivers it: an SRT
// cue, a whisper segment, a paragraph. Times are nil for untimed formats.
type Frame struct {
	Text  string
	Start *float64
	End   *float64
}

// Options controls how frames become text units.
type Options struct {
	SplitSentences  bool // re-cut frames at sentence ends
	WindowSentences int  // group this many sentences per unit, <=1 disables
}

// Reader dispatches on file extension.
type Reader struct {
	opts Options
}

func NewReader(opts Options) *Reader {
	return &Reader{opts: opts}
}

// Formats lists the extensions Read understands.
var Formats = []string{".json", ".srt", ".vtt", ".txt", ".md", ".markdown", ".pdf"}

// Format returns the format name for a path, or "" if unsupported.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".srt", ".vtt":
		return "srt"
	case ".txt":
		return "text"
	case ".md", ".markdown":
		return "markdown"
	case ".pdf":
		return "pdf"
	default:
		return ""
	}
}

func (r *Reader) Read(path string) ([]domain.TextUnit, error) {
	var frames []Frame
	var err error

	switch Format(path) {
	case "pdf":
		frames, err = ReadPDF(path)
	case "":
		return nil, fmt.Errorf("unsupported transcript format: %s", path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript: %w", err)
		}
		frames, err = r.parse(Format(path), data)
	}
	if err != nil {
		return nil, err
	}

	return r.Units(frames), nil
}

func (r *Reader) parse(format string, data []byte) ([]Frame, error) {
	switch format {
	case "json":
		return ParseJSON(data)
	case "srt":
		return ParseSRT(string(data)), nil
	case "markdown":
		return ParseMarkdown(data), nil
	default:
		return ParsePlainText(string(data)), nil
	}
}

// ReadString parses in-memory content of the given format.
func (r *Reader) ReadString(format, content string) ([]domain.TextUnit, error) {
	frames, err := r.parse(format, []byte(content))
	if err != nil {
		return nil, err
	}
	return r.Units(frames), nil
}

// Units applies sentence splitting and windowing, drops empty text and assigns
// contiguous indices.
func (r *Reader) Units(frames []Frame) []domain.TextUnit {
	if r.opts.SplitSentences {
		frames = SplitSentences(frames)
	}
	if r.opts.WindowSentences > 1 {
		frames = Window(frames, r.opts.WindowSentences)
	}

	units := make([]domain.TextUnit, 0, len(frames))
	for _, f := range frames {
		text := strings.Join(strings.Fields(f.Text), " ")
		if text == "" {
			continue
		}
		units = append(units, domain.TextUnit{
			Index: len(units),
			Text:  text,
			Start: f.Start,
			End:   f.End,
		})
	}
	return units
}
