package transcript

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParsePlainText returns one untimed frame per paragraph. Single newlines
// inside a paragraph are treated as spaces.
func ParsePlainText(content string) []Frame {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var frames []Frame
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para != "" {
			frames = append(frames, Frame{Text: para})
		}
	}
	return frames
}

// ParseMarkdown returns one frame per paragraph, heading and list item text,
// with markup stripped.
func ParseMarkdown(source []byte) []Frame {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var frames []Frame
	var current strings.Builder

	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			frames = append(frames, Frame{Text: t})
		}
		current.Reset()
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				flush()
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				current.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					current.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				current.Write(node.Value)
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return frames
}

// ReadPDF extracts the plain text of a PDF and splits it like ParsePlainText.
func ReadPDF(path string) ([]Frame, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("failed to read pdf text: %w", err)
	}
	return ParsePlainText(buf.String()), nil
}
