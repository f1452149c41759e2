package score

import (
	"context"
	"log/slog"

	"newsbot/internal/domain/entity"
)

// HeuristicScorer derives relevance from a source's credibility tier plus
// two cheap content-length signals, used whenever no LLM judge is
// configured and as the fallback when the judge fails.
type HeuristicScorer struct{}

// NewHeuristicScorer builds a HeuristicScorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score implements RelevanceScorer.
func (HeuristicScorer) Score(_ context.Context, item *entity.RawItem, body string, src *entity.Source) (float64, string, bool) {
	value, reason := heuristicRelevance(item, body, src)
	return value, reason, false
}

func heuristicRelevance(item *entity.RawItem, body string, src *entity.Source) (float64, string) {
	value := float64(src.CredibilityTier) / 5.0
	var adjustments []string

	if len(body) >= 200 {
		value += 0.1
		adjustments = append(adjustments, "body >= 200 chars (+0.1)")
	}
	if len(item.Title) < 20 {
		value -= 0.1
		adjustments = append(adjustments, "title < 20 chars (-0.1)")
	}

	return clip01(value), heuristicCredibilityReason(src.CredibilityTier, adjustments)
}

// Judge is the narrow interface an LLM relevance client must satisfy.
// Implemented by *llm.RelevanceJudge in internal/infra/llm.
type Judge interface {
	Judge(ctx context.Context, title, category, excerpt string) (score int, reason string, err error)
}

// CompositeScorer tries an LLM judge first and falls back to the heuristic
// on any failure: the AI relevance path must never block scoring.
type CompositeScorer struct {
	judge     Judge
	heuristic *HeuristicScorer
	logger    *slog.Logger
}

// NewCompositeScorer builds a CompositeScorer. judge may be nil, in which
// case relevance is always computed heuristically (AI scoring disabled).
func NewCompositeScorer(judge Judge, logger *slog.Logger) *CompositeScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeScorer{judge: judge, heuristic: NewHeuristicScorer(), logger: logger}
}

// Score implements RelevanceScorer.
func (c *CompositeScorer) Score(ctx context.Context, item *entity.RawItem, body string, src *entity.Source) (float64, string, bool) {
	if c.judge == nil {
		return c.heuristic.Score(ctx, item, body, src)
	}

	aiScore, reason, err := c.judge.Judge(ctx, item.Title, src.Category, body)
	if err != nil {
		c.logger.Warn("llm relevance judge failed, falling back to heuristic",
			slog.Int64("item_id", item.ID), slog.Any("error", err))
		return c.heuristic.Score(ctx, item, body, src)
	}

	return clip01(float64(aiScore) / 10.0), reason, true
}
