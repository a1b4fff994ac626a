package enrich

import (
	"strings"
	"unicode"
)

// Tokenizer lower-cases words and drops stopwords, transcript fillers and
// tokens shorter than three letters.
type Tokenizer struct {
	stopwords map[string]struct{}
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: defaultStopwords()}
}

func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 3 || isNumber(word) {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// splitWords keeps letters, digits and inner apostrophes ("don't").
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		inner := (r == '\'' || r == '’') && current.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || inner {
			if r == '’' {
				r = '\''
			}
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"there", "here", "then", "them", "these", "those", "about",
		"into", "over", "out", "up", "down", "off", "again", "once",
		"i'm", "it's", "that's", "don't", "can't", "i've", "you're",
		"we're", "they're", "there's", "let's", "didn't", "doesn't",
		"him", "me", "my", "us", "one", "get", "got", "say", "said",
		// spoken fillers
		"um", "uh", "yeah", "okay", "like", "know", "mean", "really",
		"right", "well", "gonna", "wanna", "kind", "sort", "thing",
		"things", "actually", "basically", "stuff", "lot", "going",
		"think", "want", "because", "now", "yes",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
