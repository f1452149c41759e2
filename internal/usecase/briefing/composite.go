package briefing

import (
	"context"
	"log/slog"
)

// CompositeComposer tries an LLM composer first and falls back to the
// deterministic template on any failure, so composition never blocks on
// the LLM being down.
type CompositeComposer struct {
	llm      Composer // nil when no LLM is configured
	fallback *TemplateComposer
	logger   *slog.Logger
}

// NewCompositeComposer builds a CompositeComposer. llm may be nil, in
// which case the template composer is always used.
func NewCompositeComposer(llm Composer, fallback *TemplateComposer, logger *slog.Logger) *CompositeComposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeComposer{llm: llm, fallback: fallback, logger: logger}
}

// Compose implements Composer.
func (c *CompositeComposer) Compose(ctx context.Context, candidates []Candidate, focusAreas string, targetWords int) (*ComposeResult, error) {
	if c.llm != nil {
		result, err := c.llm.Compose(ctx, candidates, focusAreas, targetWords)
		if err == nil && result != nil && result.Markdown != "" {
			return result, nil
		}
		c.logger.Warn("llm briefing composer failed, falling back to template", slog.Any("error", err))
	}
	return c.fallback.Compose(ctx, candidates, focusAreas, targetWords)
}
