package enrich

import (
	"context"
	"strings"
	"unicode/utf8"

	"topicseg/internal/adapter/transcript"
)

// LeadSummarizer returns the opening sentences of a segment, capped at
// maxChars. A first sentence longer than the cap is cut at a word boundary.
type LeadSummarizer struct {
	maxSentences int
	maxChars     int
}

func NewLeadSummarizer(maxSentences, maxChars int) *LeadSummarizer {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	if maxChars <= 0 {
		maxChars = 280
	}
	return &LeadSummarizer{maxSentences: maxSentences, maxChars: maxChars}
}

func (s *LeadSummarizer) Summarize(_ context.Context, text string) (string, error) {
	sentences := transcript.SplitText(text)
	if len(sentences) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, sentence := range sentences {
		if i >= s.maxSentences {
			break
		}
		if b.Len() > 0 && b.Len()+1+len(sentence) > s.maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
	}

	summary := b.String()
	if len(summary) > s.maxChars {
		summary = truncateWords(summary, s.maxChars)
	}
	return summary, nil
}

func truncateWords(s string, limit int) string {
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	cut := s[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
