// Package llm provides Claude-backed implementations of the pipeline's two
// AI-assisted steps: relevance judging for the scorer and briefing
// composition. Both wrap their API calls in the usual circuit breaker and
// retry configuration, and both fall back to a deterministic non-AI path
// on any failure rather than blocking.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
)

// relevanceSystemPrompt instructs the model to act as a terse news-signal
// judge and return strict JSON.
const relevanceSystemPrompt = `You rate how relevant a single news item is to a technology-focused reader. ` +
	`Respond with strict JSON only, no prose: {"score": <integer 0-10>, "reason": "<one short clause>"}.`

const relevanceUserTemplate = `Title: %s
Source category: %s
Excerpt: %s`

// relevanceMaxExcerptChars bounds the body text sent with a relevance request.
const relevanceMaxExcerptChars = 1500

// CapChecker gates a costed call behind a shared daily ceiling.
// Implemented by costcap.Unkeyed; declared locally so this
// package never imports internal/resilience/costcap.
type CapChecker interface {
	Allow(ctx context.Context) error
}

// RelevanceJudge calls an LLM to rate an item's relevance on a 0-10 scale.
type RelevanceJudge struct {
	client   anthropic.Client
	breaker  *circuitbreaker.CircuitBreaker
	retry    retry.Config
	model    anthropic.Model
	capCheck CapChecker // nil disables the check
	logger   *slog.Logger
}

// NewRelevanceJudge builds a RelevanceJudge. apiKey must be non-empty;
// callers fall back to the heuristic scorer when it's not configured.
// capCheck may be nil to disable the cost-cap gate.
func NewRelevanceJudge(apiKey string, capCheck CapChecker, logger *slog.Logger) *RelevanceJudge {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelevanceJudge{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		breaker:  circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retry:    retry.AIAPIConfig(),
		model:    anthropic.ModelClaudeSonnet4_5_20250929,
		capCheck: capCheck,
		logger:   logger,
	}
}

// relevanceResponse is the strict JSON shape the prompt requests.
type relevanceResponse struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Judge returns a 0-10 relevance score and a short reason for title/excerpt
// in the given source category. An error here means the caller should fall
// back to the heuristic scorer; it is never treated as fatal to scoring.
func (j *RelevanceJudge) Judge(ctx context.Context, title, category, excerpt string) (score int, reason string, err error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if j.capCheck != nil {
		if err := j.capCheck.Allow(ctx); err != nil {
			return 0, "", fmt.Errorf("relevance judge rejected by cost cap: %w", err)
		}
	}

	if len(excerpt) > relevanceMaxExcerptChars {
		excerpt = excerpt[:relevanceMaxExcerptChars]
	}
	prompt := fmt.Sprintf(relevanceUserTemplate, title, category, excerpt)

	var raw string
	retryErr := retry.WithBackoff(ctx, j.retry, func() error {
		result, err := j.breaker.Execute(func() (interface{}, error) {
			return j.complete(ctx, prompt)
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
		return 0, "", fmt.Errorf("relevance judge failed after retries: %w", retryErr)
	}

	var parsed relevanceResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return 0, "", fmt.Errorf("parsing relevance judge response: %w", err)
	}
	if parsed.Score < 0 || parsed.Score > 10 {
		return 0, "", fmt.Errorf("relevance judge returned out-of-range score %d", parsed.Score)
	}
	return parsed.Score, parsed.Reason, nil
}

func (j *RelevanceJudge) complete(ctx context.Context, userPrompt string) (string, error) {
	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       j.model,
		MaxTokens:   200,
		Temperature: anthropic.Float(0.1),
		System:      []anthropic.TextBlockParam{{Text: relevanceSystemPrompt}},
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

// extractJSON trims any stray text around the first {...} block, since the
// model occasionally wraps JSON in a code fence despite instructions.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
