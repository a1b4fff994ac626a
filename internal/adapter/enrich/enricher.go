// Package enrich attaches summaries, keywords and sentiment labels to segments.
package enrich

import (
	"context"
	"errors"
	"log/slog"

	"topicseg/internal/domain"
	"topicseg/internal/port"
)

// Composite runs a summarizer, keyword extractor and sentiment classifier
// independently. A failing collaborator leaves its field empty; the error is
// logged and returned joined with the others so callers can decide.
type Composite struct {
	summarizer   port.Summarizer
	keywords     port.KeywordExtractor
	sentiment    port.SentimentClassifier
	keywordLimit int
	logger       *slog.Logger
}

func NewComposite(s port.Summarizer, k port.KeywordExtractor, c port.SentimentClassifier, keywordLimit int, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	if keywordLimit <= 0 {
		keywordLimit = 5
	}
	return &Composite{
		summarizer:   s,
		keywords:     k,
		sentiment:    c,
		keywordLimit: keywordLimit,
		logger:       logger,
	}
}

// NewLocal wires the offline enrichers.
func NewLocal(keywordLimit, summarySentences, summaryChars int, logger *slog.Logger) *Composite {
	return NewComposite(
		NewLeadSummarizer(summarySentences, summaryChars),
		NewTermFrequencyKeywords(),
		NewLexiconSentiment(),
		keywordLimit,
		logger,
	)
}

func (c *Composite) Enrich(ctx context.Context, text string) (domain.Enrichment, error) {
	out := domain.Enrichment{Keywords: []string{}}
	var errs []error

	if c.summarizer != nil {
		summary, err := c.summarizer.Summarize(ctx, text)
		if err != nil {
			c.logger.Warn("summary failed", "error", err)
			errs = append(errs, err)
		} else {
			out.Summary = summary
		}
	}

	if c.keywords != nil {
		keywords, err := c.keywords.Keywords(ctx, text, c.keywordLimit)
		if err != nil {
			c.logger.Warn("keyword extraction failed", "error", err)
			errs = append(errs, err)
		} else {
			out.Keywords = keywords
		}
	}

	if c.sentiment != nil {
		label, err := c.sentiment.Sentiment(ctx, text)
		if err != nil {
			c.logger.Warn("sentiment failed", "error", err)
			errs = append(errs, err)
		} else {
			out.Sentiment = label
		}
	}

	return out, errors.Join(errs...)
}
