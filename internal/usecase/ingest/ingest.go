// Package ingest drives the first pipeline stage: pulling normalized items
// from a Source's ingester and persisting the ones that aren't already known.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/observability/metrics"
	"newsbot/internal/repository"
)

// MaxItemsPerSource bounds how many items a single ingest run pulls from one
// source, regardless of how many the upstream listing/feed actually has.
const MaxItemsPerSource = 100

// Ingester fetches and normalizes items from a single source type. A failure
// fetching the listing itself (the whole feed/listing request) should be
// returned as an error and fails the run; a failure parsing or normalizing
// one entry should be logged and the entry skipped, never returned as an
// error from Fetch.
type Ingester interface {
	// SourceType reports which entity.SourceType this ingester handles.
	SourceType() entity.SourceType
	// Fetch returns up to MaxItemsPerSource normalized items for src.
	Fetch(ctx context.Context, src *entity.Source) ([]*entity.RawItem, error)
}

// ExactDuplicateChecker runs the cross-source exact-match dedup pass
// (shared URL or title within the time window) against an already-
// persisted item, before it has any embedding. Implemented by
// *dedup.Service in internal/usecase/dedup.
type ExactDuplicateChecker interface {
	CheckExactDuplicate(ctx context.Context, item *entity.RawItem) (bool, error)
}

// Service dispatches each enabled source to its registered Ingester and
// persists new items, skipping ones that already exist by (source_id,
// external_id).
type Service struct {
	sources   repository.SourceRepository
	items     repository.RawItemRepository
	dedup     ExactDuplicateChecker
	ingesters map[entity.SourceType]Ingester
	logger    *slog.Logger
}

// NewService builds a Service from the given ingesters, keyed by their
// SourceType. dedup may be nil, in which case the exact-duplicate pass is
// skipped (cross-source duplicates are still caught later by the semantic
// pass once items have embeddings).
func NewService(sources repository.SourceRepository, items repository.RawItemRepository, dedup ExactDuplicateChecker, logger *slog.Logger, ingesters ...Ingester) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	byType := make(map[entity.SourceType]Ingester, len(ingesters))
	for _, ig := range ingesters {
		byType[ig.SourceType()] = ig
	}
	return &Service{sources: sources, items: items, dedup: dedup, ingesters: byType, logger: logger}
}

// RunResult summarizes one source's ingest run.
type RunResult struct {
	SourceID int64
	Fetched  int
	Inserted int
	Skipped  int
}

// RunAll ingests every enabled source, continuing past a single source's
// failure so one broken feed doesn't block the rest of the batch.
func (s *Service) RunAll(ctx context.Context) ([]RunResult, error) {
	srcs, err := s.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active sources: %w", err)
	}

	results := make([]RunResult, 0, len(srcs))
	for _, src := range srcs {
		res, err := s.RunSource(ctx, src)
		if err != nil {
			s.logger.Error("ingest run failed for source",
				slog.Int64("source_id", src.ID),
				slog.String("source_name", src.Name),
				slog.Any("error", err))
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// RunSource runs the ingester registered for src.Type and persists the
// items it returns.
func (s *Service) RunSource(ctx context.Context, src *entity.Source) (RunResult, error) {
	ig, ok := s.ingesters[src.Type]
	if !ok {
		return RunResult{}, fmt.Errorf("no ingester registered for source type %q", src.Type)
	}

	items, err := ig.Fetch(ctx, src)
	if err != nil {
		return RunResult{}, fmt.Errorf("fetching source %d (%s): %w", src.ID, src.Name, err)
	}

	res := RunResult{SourceID: src.ID, Fetched: len(items)}
	for _, item := range items {
		inserted, err := s.persist(ctx, item)
		if err != nil {
			s.logger.Warn("failed to persist ingested item",
				slog.Int64("source_id", src.ID),
				slog.String("external_id", item.ExternalID),
				slog.Any("error", err))
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}

	metrics.ItemsIngestedTotal.WithLabelValues(string(src.Type)).Add(float64(res.Inserted))

	if err := s.sources.TouchCrawledAt(ctx, src.ID, time.Now()); err != nil {
		s.logger.Warn("failed to update source crawled_at",
			slog.Int64("source_id", src.ID),
			slog.Any("error", err))
	}

	return res, nil
}

// persist inserts item if (source_id, external_id) isn't already known.
// It returns (true, nil) on insert and (false, nil) when skipped as a
// duplicate.
func (s *Service) persist(ctx context.Context, item *entity.RawItem) (bool, error) {
	exists, err := s.items.ExistsByExternalID(ctx, item.SourceID, item.ExternalID)
	if err != nil {
		return false, fmt.Errorf("checking existing item: %w", err)
	}
	if exists {
		return false, nil
	}

	item.ContentHash = entity.ComputeContentHash(item.Title, item.RawText)
	item.Status = entity.ItemStatusNew
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("invalid item: %w", err)
	}

	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, entity.ErrDuplicateItem) {
			return false, nil
		}
		return false, fmt.Errorf("creating item: %w", err)
	}

	if s.dedup != nil {
		if _, err := s.dedup.CheckExactDuplicate(ctx, item); err != nil {
			s.logger.Warn("exact-duplicate check failed",
				slog.Int64("item_id", item.ID), slog.Any("error", err))
		}
	}

	return true, nil
}
