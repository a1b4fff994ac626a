package transcript

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"vs": true, "etc": true, "e.g": true, "i.e": true, "jr": true, "sr": true,
}

// SplitText cuts text after '.', '!' or '?' when followed by whitespace or the
// end of the text. Closing quotes and brackets stay with their sentence.
func SplitText(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isTerminal(runes[end]) {
			end++
		}
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if runes[i] == '.' && isAbbreviation(runes[start:i]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// SplitSentences re-cuts frames so each output frame holds one sentence.
// Sentences that span frames take the start of their first frame and the end
// of their last; sentences split out of one frame share its times.
func SplitSentences(frames []Frame) []Frame {
	var out []Frame
	var buf []string
	var start, end *float64

	for _, f := range frames {
		for _, piece := range SplitText(f.Text) {
			if len(buf) == 0 {
				start = f.Start
			}
			buf = append(buf, piece)
			end = f.End

			if endsSentence(piece) {
				out = append(out, Frame{Text: strings.Join(buf, " "), Start: start, End: end})
				buf = buf[:0]
			}
		}
	}
	if len(buf) > 0 {
		out = append(out, Frame{Text: strings.Join(buf, " "), Start: start, End: end})
	}
	return out
}

// Window groups every size consecutive frames into one.
func Window(frames []Frame, size int) []Frame {
	if size <= 1 {
		return frames
	}
	out := make([]Frame, 0, (len(frames)+size-1)/size)
	for i := 0; i < len(frames); i += size {
		j := min(i+size, len(frames))
		texts := make([]string, 0, j-i)
		for _, f := range frames[i:j] {
			texts = append(texts, f.Text)
		}
		out = append(out, Frame{
			Text:  strings.Join(texts, " "),
			Start: frames[i].Start,
			End:   frames[j-1].End,
		})
	}
	return out
}

func endsSentence(s string) bool {
	s = strings.TrimRightFunc(s, isCloser)
	if s == "" {
		return false
	}
	r := []rune(s)
	return isTerminal(r[len(r)-1])
}

func isAbbreviation(before []rune) bool {
	word := string(before)
	if idx := strings.LastIndexFunc(word, unicode.IsSpace); idx >= 0 {
		word = word[idx+1:]
	}
	word = strings.ToLower(strings.TrimLeftFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	return abbreviations[word]
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '”' || r == '’'
}
