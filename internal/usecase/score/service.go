// Package score implements the fifth pipeline stage: a four-axis composite
// signal score over each clustered item, using an LLM-judged relevance axis
// when configured and a deterministic heuristic otherwise.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/observability/metrics"
	"newsbot/internal/repository"
)

// HighSignalThreshold is the minimum signal score a briefing or operational
// dashboard treats as worth surfacing.
const HighSignalThreshold = 0.6

// RelevanceScorer computes the relevance axis (0-1) for an item, given its
// source, returning a short human-readable reason and whether an LLM
// contributed the score.
type RelevanceScorer interface {
	Score(ctx context.Context, item *entity.RawItem, body string, src *entity.Source) (value float64, reason string, aiScored bool)
}

// Service runs the scoring pass over items at status "clustered".
type Service struct {
	items     repository.RawItemRepository
	content   repository.ExtractedContentRepository
	sources   repository.SourceRepository
	clusters  repository.ClusterRepository
	scores    repository.ItemScoreRepository
	relevance RelevanceScorer
	logger    *slog.Logger
}

// NewService builds a Service. relevance is typically a *CompositeScorer
// wired with an llmScorer (when an LLM is configured) falling back to a
// heuristicScorer.
func NewService(
	items repository.RawItemRepository,
	content repository.ExtractedContentRepository,
	sources repository.SourceRepository,
	clusters repository.ClusterRepository,
	scores repository.ItemScoreRepository,
	relevance RelevanceScorer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		items: items, content: content, sources: sources,
		clusters: clusters, scores: scores, relevance: relevance, logger: logger,
	}
}

// RunResult summarizes one scoring batch.
type RunResult struct {
	Processed  int
	Scored     int
	Failed     int
	HighSignal int
}

// ScorePending is the sole scoring entry point: it scores up to limit items
// at status "clustered" and advances each to "scored". A per-item failure
// is logged and skipped rather than failing the whole batch.
func (s *Service) ScorePending(ctx context.Context, limit int) (RunResult, error) {
	items, err := s.items.ListByStatus(ctx, entity.ItemStatusClustered, limit)
	if err != nil {
		return RunResult{}, fmt.Errorf("listing clustered items: %w", err)
	}

	var res RunResult
	for _, item := range items {
		res.Processed++
		signal, err := s.scoreOne(ctx, item)
		if err != nil {
			s.logger.Warn("failed to score item", slog.Int64("item_id", item.ID), slog.Any("error", err))
			res.Failed++
			continue
		}
		res.Scored++
		if signal >= HighSignalThreshold {
			res.HighSignal++
		}
		if err := s.items.UpdateStatus(ctx, item.ID, entity.ItemStatusScored); err != nil {
			s.logger.Warn("failed to advance item status to scored",
				slog.Int64("item_id", item.ID), slog.Any("error", err))
		}
	}

	metrics.ItemsScoredTotal.Add(float64(res.Scored))
	metrics.HighSignalTotal.Add(float64(res.HighSignal))
	return res, nil
}

func (s *Service) scoreOne(ctx context.Context, item *entity.RawItem) (float64, error) {
	src, err := s.sources.Get(ctx, item.SourceID)
	if err != nil {
		return 0, fmt.Errorf("loading source: %w", err)
	}

	body := item.RawText
	if extracted, err := s.content.GetByRawItemID(ctx, item.ID); err == nil && extracted != nil && extracted.Text != "" {
		body = extracted.Text
	}

	relevance, relevanceReason, aiScored := s.relevance.Score(ctx, item, body, src)
	velocity, velocityReason := computeVelocity(item)
	crossSource, crossSourceReason := s.computeCrossSource(ctx, item.ID)
	novelty, noveltyReason := computeNovelty(item)

	signal := entity.ComputeSignalScore(relevance, velocity, crossSource, novelty)
	computedAt := time.Now()

	row := &entity.ItemScore{
		RawItemID:   item.ID,
		ComputedAt:  computedAt,
		Relevance:   relevance,
		Velocity:    velocity,
		CrossSource: crossSource,
		Novelty:     novelty,
		SignalScore: signal,
		ScoreMeta: map[string]any{
			"weights": map[string]float64{
				"relevance":    entity.WeightRelevance,
				"velocity":     entity.WeightVelocity,
				"cross_source": entity.WeightCrossSource,
				"novelty":      entity.WeightNovelty,
			},
			"components": map[string]any{
				"relevance":    map[string]any{"score": relevance, "reason": relevanceReason},
				"velocity":     map[string]any{"score": velocity, "reason": velocityReason},
				"cross_source": map[string]any{"score": crossSource, "reason": crossSourceReason},
				"novelty":      map[string]any{"score": novelty, "reason": noveltyReason},
			},
			"computed_at": computedAt.Format(time.RFC3339),
			"ai_scored":   aiScored,
		},
	}

	if err := row.Validate(); err != nil {
		return 0, fmt.Errorf("score failed validation: %w", err)
	}
	if err := s.scores.Create(ctx, row); err != nil {
		return 0, fmt.Errorf("saving score: %w", err)
	}
	return signal, nil
}

// computeVelocity derives the velocity axis from source-specific engagement
// counters carried in RawPayload, defaulting to 0.5 when none apply.
func computeVelocity(item *entity.RawItem) (float64, string) {
	if item.RawPayload == nil {
		return 0.5, "no engagement data, default"
	}
	if _, ok := item.RawPayload["hn_id"]; ok {
		hnScore := floatFromPayload(item.RawPayload, "score")
		v := clip01(hnScore / 200)
		return v, fmt.Sprintf("hn score %.0f / 200", hnScore)
	}
	if _, ok := item.RawPayload["subreddit"]; ok {
		redditScore := floatFromPayload(item.RawPayload, "score")
		ratio := floatFromPayload(item.RawPayload, "upvote_ratio")
		v := clip01((redditScore / 500) * ratio)
		return v, fmt.Sprintf("reddit score %.0f/500 * upvote ratio %.2f", redditScore, ratio)
	}
	return 0.5, "no engagement data, default"
}

// computeCrossSource derives the cross-source axis from the size of the
// cluster rawItemID belongs to, if any.
func (s *Service) computeCrossSource(ctx context.Context, rawItemID int64) (float64, string) {
	cluster, err := s.clusters.GetByMemberItemID(ctx, rawItemID)
	if err != nil || cluster == nil {
		return 0.3, "not clustered"
	}
	count, err := s.clusters.CountMembers(ctx, cluster.ID)
	if err != nil {
		return 0.3, "cluster size lookup failed"
	}
	switch {
	case count >= 3:
		return 1.0, fmt.Sprintf("cluster size %d", count)
	case count == 2:
		return 0.7, "cluster size 2"
	default:
		return 0.3, "cluster size 1"
	}
}

// computeNovelty buckets recency off PublishedAt when present, else
// FetchedAt. The two timestamps use different bucket tables since a
// missing publication date deserves less of a recency boost.
func computeNovelty(item *entity.RawItem) (float64, string) {
	now := time.Now()
	if item.PublishedAt != nil {
		age := now.Sub(*item.PublishedAt)
		switch {
		case age < 6*time.Hour:
			return 0.9, "published < 6h ago"
		case age < 24*time.Hour:
			return 0.7, "published < 24h ago"
		case age < 72*time.Hour:
			return 0.5, "published < 72h ago"
		default:
			return 0.3, "published >= 72h ago"
		}
	}

	age := now.Sub(item.FetchedAt)
	switch {
	case age < 6*time.Hour:
		return 0.8, "fetched < 6h ago, no published_at"
	case age < 24*time.Hour:
		return 0.6, "fetched < 24h ago, no published_at"
	default:
		return 0.4, "fetched >= 24h ago, no published_at"
	}
}

func floatFromPayload(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// heuristicCredibilityReason renders the heuristic relevance explanation,
// shared by HeuristicScorer and tests.
func heuristicCredibilityReason(tier int, adjustments []string) string {
	if len(adjustments) == 0 {
		return fmt.Sprintf("credibility tier %d/5", tier)
	}
	return fmt.Sprintf("credibility tier %d/5, %s", tier, strings.Join(adjustments, ", "))
}
