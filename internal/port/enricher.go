package port

import (
	"context"

	"topicseg/internal/domain"
)

// Summarizer produces a short summary of a segment's text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// KeywordExtractor returns the most salient keywords of a segment's text.
type KeywordExtractor interface {
	Keywords(ctx context.Context, text string, limit int) ([]string, error)
}

// SentimentClassifier labels text as positive, negative or neutral.
type SentimentClassifier interface {
	Sentiment(ctx context.Context, text string) (string, error)
}

// Enricher attaches summary, keywords and sentiment to one segment's text.
type Enricher interface {
	Enrich(ctx context.Context, text string) (domain.Enrichment, error)
}
