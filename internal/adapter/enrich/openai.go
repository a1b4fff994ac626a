package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"topicseg/internal/domain"
)

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIEnricher asks a chat model for all three fields in one JSON response.
type OpenAIEnricher struct {
	client       ChatClient
	model        string
	keywordLimit int
	maxRetries   int
	retryDelay   time.Duration
	timeout      time.Duration
}

func NewOpenAIEnricher(apiKeyEnv, model, baseURL string, keywordLimit int) (*OpenAIEnricher, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIEnricherWithClient(openai.NewClientWithConfig(cfg), model, keywordLimit), nil
}

func NewOpenAIEnricherWithClient(client ChatClient, model string, keywordLimit int) *OpenAIEnricher {
	if model == "" {
		model = openai.GPT4oMini
	}
	if keywordLimit <= 0 {
		keywordLimit = 5
	}
	return &OpenAIEnricher{
		client:       client,
		model:        model,
		keywordLimit: keywordLimit,
		maxRetries:   2,
		retryDelay:   time.Second,
		timeout:      30 * time.Second,
	}
}

const enrichSystemPrompt = `You annotate one topical segment of a spoken transcript. Extract:
1. summary: one or two sentences describing what the segment is about (string)
2. keywords: up to %d important terms, most important first (array of strings)
3. sentiment: overall tone (string: positive, negative, neutral)

Return ONLY a JSON object with these three fields. No additional text.`

type enrichResponse struct {
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords"`
	Sentiment string   `json:"sentiment"`
}

func (e *OpenAIEnricher) Enrich(ctx context.Context, text string) (domain.Enrichment, error) {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.Enrichment{}, ctx.Err()
			case <-time.After(e.retryDelay * time.Duration(attempt)):
			}
		}

		result, err := e.complete(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
	}

	return domain.Enrichment{}, fmt.Errorf("failed to enrich segment after %d attempts: %w", e.maxRetries+1, lastErr)
}

func (e *OpenAIEnricher) complete(ctx context.Context, text string) (domain.Enrichment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(enrichSystemPrompt, e.keywordLimit)},
			{Role: openai.ChatMessageRoleUser, Content: "Segment:\n\n" + text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	if err != nil {
		return domain.Enrichment{}, err
	}
	if len(resp.Choices) == 0 {
		return domain.Enrichment{}, fmt.Errorf("no completion choices returned")
	}

	var parsed enrichResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(parsed.Keywords) > e.keywordLimit {
		parsed.Keywords = parsed.Keywords[:e.keywordLimit]
	}
	if parsed.Keywords == nil {
		parsed.Keywords = []string{}
	}
	return domain.Enrichment{
		Summary:   strings.TrimSpace(parsed.Summary),
		Keywords:  parsed.Keywords,
		Sentiment: normalizeSentiment(parsed.Sentiment),
	}, nil
}

func normalizeSentiment(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case domain.SentimentPositive:
		return domain.SentimentPositive
	case domain.SentimentNegative:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
