// Package output renders segmentation results as canonical JSON and markdown.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"topicseg/internal/domain"
)

// Document is the canonical on-disk schema. Times are seconds, null for
// untimed inputs; unit ranges are half-open.
type Document struct {
	Document string           `json:"document"`
	Source   string           `json:"source,omitempty"`
	Segments []domain.Segment `json:"segments"`
}

func NewDocument(source string, segments []domain.Segment) Document {
	if segments == nil {
		segments = []domain.Segment{}
	}
	return Document{
		Document: DocumentName(source),
		Source:   source,
		Segments: segments,
	}
}

// DocumentName is the file name without directory and extension.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteJSONFile writes through a temp file so readers never see a partial document.
func WriteJSONFile(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := WriteJSON(f, doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadJSONFile(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// SegmentsPath is where batch mode writes the JSON for a transcript:
// talk.srt -> talk.segments.json next to it, or under outDir when set.
func SegmentsPath(source, outDir string) string {
	name := DocumentName(source) + ".segments.json"
	if outDir == "" {
		return filepath.Join(filepath.Dir(source), name)
	}
	return filepath.Join(outDir, name)
}
