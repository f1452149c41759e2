// Package extract drives the second pipeline stage: pulling content from
// each new item's URL and advancing it to extracted, with or without a
// saved ExtractedContent row.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// fetchParallelism bounds concurrent article downloads within one batch.
// Each fetch can block for the full 30 s HTTP timeout, so a sequential
// batch of 100 would overrun the task time limit.
const fetchParallelism = 4

// Fetcher performs the actual extraction for a single URL. It is
// implemented by *extract.Extractor in internal/infra/extract.
type Fetcher interface {
	Extract(ctx context.Context, rawURL string) (*Result, error)
}

// Result is the accepted output of one extraction pass.
type Result struct {
	Text      string
	WordCount int
	Method    string
	Quality   float64
	FinalURL  string
}

// Skipper reports whether a URL belongs to a known unextractable domain.
type Skipper func(rawURL string) bool

// Service runs the extraction pass over items in the "new" status.
type Service struct {
	items      repository.RawItemRepository
	content    repository.ExtractedContentRepository
	fetcher    Fetcher
	shouldSkip Skipper
	logger     *slog.Logger
}

// NewService builds a Service. shouldSkip may be nil, in which case no URL
// is pre-emptively skipped.
func NewService(items repository.RawItemRepository, content repository.ExtractedContentRepository, fetcher Fetcher, shouldSkip Skipper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if shouldSkip == nil {
		shouldSkip = func(string) bool { return false }
	}
	return &Service{items: items, content: content, fetcher: fetcher, shouldSkip: shouldSkip, logger: logger}
}

// RunResult summarizes one extraction batch.
type RunResult struct {
	Processed int
	Extracted int
	Failed    int
	Skipped   int
}

type outcome int

const (
	outcomeExtracted outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Run processes up to limit items at status "new", downloading in
// parallel up to fetchParallelism at a time. Extraction failures for one
// item never block the batch or the item's own advancement: the
// extractor stage is non-blocking for downstream pipeline stages.
func (s *Service) Run(ctx context.Context, limit int) (RunResult, error) {
	items, err := s.items.ListByStatus(ctx, entity.ItemStatusNew, limit)
	if err != nil {
		return RunResult{}, fmt.Errorf("listing new items: %w", err)
	}

	var extracted, failed, skipped atomic.Int64
	sem := make(chan struct{}, fetchParallelism)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			switch s.processOne(egCtx, item) {
			case outcomeExtracted:
				extracted.Add(1)
			case outcomeFailed:
				failed.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = eg.Wait()

	return RunResult{
		Processed: len(items),
		Extracted: int(extracted.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}, nil
}

func (s *Service) processOne(ctx context.Context, item *entity.RawItem) outcome {
	defer func() {
		if err := s.items.UpdateStatus(ctx, item.ID, entity.ItemStatusExtracted); err != nil {
			s.logger.Warn("failed to advance item status to extracted",
				slog.Int64("item_id", item.ID), slog.Any("error", err))
		}
	}()

	if item.URL == "" || s.shouldSkip(item.URL) {
		return outcomeSkipped
	}

	result, err := s.fetcher.Extract(ctx, item.URL)
	if err != nil {
		s.logger.Warn("extraction fetch failed", slog.Int64("item_id", item.ID), slog.String("url", item.URL), slog.Any("error", err))
		return outcomeFailed
	}
	if result == nil {
		return outcomeFailed
	}

	row := &entity.ExtractedContent{
		RawItemID:   item.ID,
		FinalURL:    result.FinalURL,
		Text:        result.Text,
		WordCount:   result.WordCount,
		Method:      result.Method,
		Quality:     result.Quality,
		ExtractedAt: time.Now(),
	}
	if err := row.Validate(); err != nil {
		s.logger.Warn("extracted content failed validation", slog.Int64("item_id", item.ID), slog.Any("error", err))
		return outcomeFailed
	}
	if err := s.content.Create(ctx, row); err != nil {
		s.logger.Warn("failed to save extracted content", slog.Int64("item_id", item.ID), slog.Any("error", err))
		return outcomeFailed
	}
	return outcomeExtracted
}
