package output

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"topicseg/internal/domain"
)

// Metadata describes the run that produced a report.
type Metadata struct {
	Title     string
	Source    string
	Model     string
	Generated string
}

func RenderMarkdown(meta Metadata, segments []domain.Segment) string {
	var b strings.Builder

	if meta.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	} else {
		b.WriteString("# Topic Segments\n\n")
	}
	if meta.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", meta.Source)
	}
	if meta.Model != "" {
		fmt.Fprintf(&b, "- Model: `%s`\n", meta.Model)
	}
	if meta.Generated != "" {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.Generated)
	}
	fmt.Fprintf(&b, "- Segments: %d\n", len(segments))
	b.WriteString("\n---\n\n")

	for _, s := range segments {
		fmt.Fprintf(&b, "## %s%d. %s\n\n", timeRange(s), s.SegmentID+1, heading(s))

		if s.Sentiment != "" || len(s.Keywords) > 0 {
			var tags []string
			if s.Sentiment != "" {
				tags = append(tags, "*"+s.Sentiment+"*")
			}
			if len(s.Keywords) > 0 {
				tags = append(tags, "`"+strings.Join(s.Keywords, "` `")+"`")
			}
			fmt.Fprintf(&b, "%s\n\n", strings.Join(tags, " · "))
		}
		if s.Summary != "" {
			fmt.Fprintf(&b, "> %s\n\n", s.Summary)
		}
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(s.Text))
	}
	return b.String()
}

func timeRange(s domain.Segment) string {
	if s.Start == nil || s.End == nil {
		return ""
	}
	return fmt.Sprintf("[%s-%s] ", SecToTS(*s.Start), SecToTS(*s.End))
}

// heading prefers the first keyword, falling back to the unit range.
func heading(s domain.Segment) string {
	if len(s.Keywords) > 0 && s.Keywords[0] != "" {
		r, size := utf8.DecodeRuneInString(s.Keywords[0])
		return string(unicode.ToTitle(r)) + s.Keywords[0][size:]
	}
	return fmt.Sprintf("Units %d-%d", s.StartUnit, s.EndUnit-1)
}

// SecToTS formats seconds as mm:ss, or hh:mm:ss from one hour on.
func SecToTS(sec float64) string {
	d := time.Duration(sec*1000) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
