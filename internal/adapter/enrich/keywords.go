package enrich

import (
	"context"
	"sort"
)

// TermFrequencyKeywords ranks tokens by count, ties broken by first occurrence.
type TermFrequencyKeywords struct {
	tokenizer *Tokenizer
}

func NewTermFrequencyKeywords() *TermFrequencyKeywords {
	return &TermFrequencyKeywords{tokenizer: NewTokenizer()}
}

func (k *TermFrequencyKeywords) Keywords(_ context.Context, text string, limit int) ([]string, error) {
	tokens := k.tokenizer.Tokenize(text)
	if len(tokens) == 0 || limit <= 0 {
		return []string{}, nil
	}

	type term struct {
		word  string
		count int
		first int
	}
	index := make(map[string]int)
	var terms []term
	for i, tok := range tokens {
		if j, ok := index[tok]; ok {
			terms[j].count++
			continue
		}
		index[tok] = len(terms)
		terms = append(terms, term{word: tok, count: 1, first: i})
	}

	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].first < terms[j].first
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.word
	}
	return out, nil
}
