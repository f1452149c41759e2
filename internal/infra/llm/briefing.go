package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
	"newsbot/internal/utils/text"
	briefinguc "newsbot/internal/usecase/briefing"
)

// briefingSystemPrompt sets the senior-analyst voice of the briefing.
const briefingSystemPrompt = `You are a senior technology analyst writing a daily intelligence briefing for busy technical leaders. ` +
	`Lead with the most actionable insight, explain why each item matters, connect related stories, and call out what the reader should do or watch. ` +
	`Respond with strict JSON only: {"briefing": "<markdown>", "items_used": [<item id>, ...]}.`

const briefingUserTemplate = `Candidate items (JSON):
%s

Requirements:
- Cover at most %d of the most important items, ranked by importance.
- Total length around %d words.
- Focus areas: %s`

// candidateWire is the JSON shape sent to the model for one candidate.
type candidateWire struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	Category    string  `json:"category"`
	PublishedAt string  `json:"published_at,omitempty"`
	SignalScore float64 `json:"signal_score"`
	Content     string  `json:"content"`
}

// briefingResponse is the strict JSON shape the prompt requests.
type briefingResponse struct {
	Briefing  string        `json:"briefing"`
	ItemsUsed []json.Number `json:"items_used"`
}

// maxBriefingItems bounds how many candidates the prompt asks the model to
// cover, independent of how many candidates were passed in.
const maxBriefingItems = briefinguc.DefaultNumItems

// BriefingComposer calls Claude to turn a candidate set into a narrative
// markdown briefing. It implements briefinguc.Composer.
type BriefingComposer struct {
	client  anthropic.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	model   anthropic.Model
	logger  *slog.Logger
}

// NewBriefingComposer builds a BriefingComposer.
func NewBriefingComposer(apiKey string, logger *slog.Logger) *BriefingComposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BriefingComposer{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		breaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retry:   retry.AIAPIConfig(),
		model:   anthropic.ModelClaudeSonnet4_5_20250929,
		logger:  logger,
	}
}

// Compose implements briefinguc.Composer.
func (c *BriefingComposer) Compose(ctx context.Context, candidates []briefinguc.Candidate, focusAreas string, targetWords int) (*briefinguc.ComposeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	wire := make([]candidateWire, 0, len(candidates))
	for _, cand := range candidates {
		published := ""
		if cand.PublishedAt != nil {
			published = cand.PublishedAt.Format(time.RFC3339)
		}
		wire = append(wire, candidateWire{
			ID: cand.RawItemID, Title: cand.Title, URL: cand.URL,
			Source: cand.Source, Category: cand.Category,
			PublishedAt: published, SignalScore: cand.SignalScore, Content: cand.Snippet,
		})
	}

	payload, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling candidates: %w", err)
	}
	prompt := fmt.Sprintf(briefingUserTemplate, payload, maxBriefingItems, targetWords, focusAreas)

	var raw string
	retryErr := retry.WithBackoff(ctx, c.retry, func() error {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.complete(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("briefing composer failed after retries: %w", retryErr)
	}

	var parsed briefingResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parsing briefing composer response: %w", err)
	}
	if parsed.Briefing == "" {
		return nil, fmt.Errorf("briefing composer returned empty briefing")
	}
	c.logger.Debug("briefing composer response length",
		slog.Int("target_words", targetWords),
		slog.Int("chars", text.CountRunes(parsed.Briefing)))

	ids := make([]int64, 0, len(parsed.ItemsUsed))
	for _, n := range parsed.ItemsUsed {
		id, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return &briefinguc.ComposeResult{Markdown: parsed.Briefing, ItemsUsed: ids}, nil
}

func (c *BriefingComposer) complete(ctx context.Context, userPrompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2000,
		System:    []anthropic.TextBlockParam{{Text: briefingSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	return textBlock.Text, nil
}
