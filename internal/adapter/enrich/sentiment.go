package enrich

import (
	"context"
	"strings"

	"topicseg/internal/domain"
)

// LexiconSentiment counts positive and negative words. A negation flips the
// polarity of the next sentiment word within three tokens.
type LexiconSentiment struct {
	positive map[string]struct{}
	negative map[string]struct{}
	// margin is the minimum share of sentiment words one side needs to win.
	margin float64
}

func NewLexiconSentiment() *LexiconSentiment {
	return &LexiconSentiment{
		positive: toSet(positiveWords),
		negative: toSet(negativeWords),
		margin:   0.2,
	}
}

func (s *LexiconSentiment) Sentiment(_ context.Context, text string) (string, error) {
	var pos, neg int
	negateUntil := -1

	for i, word := range splitWords(text) {
		word = strings.ToLower(word)
		if _, ok := negations[word]; ok {
			negateUntil = i + 3
			continue
		}

		polarity := 0
		if _, ok := s.positive[word]; ok {
			polarity = 1
		} else if _, ok := s.negative[word]; ok {
			polarity = -1
		}
		if polarity == 0 {
			continue
		}
		if i <= negateUntil {
			polarity = -polarity
			negateUntil = -1
		}
		if polarity > 0 {
			pos++
		} else {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return domain.SentimentNeutral, nil
	}
	score := float64(pos-neg) / float64(total)
	switch {
	case score > s.margin:
		return domain.SentimentPositive, nil
	case score < -s.margin:
		return domain.SentimentNegative, nil
	default:
		return domain.SentimentNeutral, nil
	}
}

var negations = toSet([]string{"not", "no", "never", "don't", "didn't", "isn't", "wasn't", "aren't", "can't", "won't", "nothing", "hardly"})

var positiveWords = []string{
	"good", "great", "excellent", "amazing", "awesome", "wonderful", "fantastic",
	"love", "loved", "liked", "enjoy", "enjoyed", "happy", "glad", "excited",
	"exciting", "best", "better", "nice", "beautiful", "brilliant", "success",
	"successful", "win", "won", "winning", "benefit", "helpful", "useful", "easy",
	"fun", "interesting", "impressive", "perfect", "positive", "progress", "improve",
	"improved", "thanks", "thank", "grateful", "hope", "hopeful", "agree",
	"strong", "safe", "healthy", "proud", "inspiring", "recommend", "favorite",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "worst", "worse", "hate", "hated",
	"dislike", "sad", "angry", "upset", "afraid", "fear", "scared", "worried",
	"worry", "problem", "problems", "issue", "issues", "fail", "failed", "failure",
	"lose", "lost", "losing", "loss", "wrong", "difficult", "hard", "hurt", "pain",
	"painful", "crisis", "danger", "dangerous", "risk", "broken", "boring", "annoying",
	"disappointed", "disappointing", "negative", "sick", "death", "died", "kill",
	"killed", "war", "poor", "weak", "stress", "stressful", "unfortunately",
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
