// Package signal provides read-only use cases over scored items, the
// pipeline's externally visible "signal" of what's worth a reader's
// attention. It only wraps repository.ItemScoreRepository queries;
// scoring itself happens in internal/usecase/score.
package signal

import (
	"context"
	"fmt"
	"time"

	"newsbot/internal/repository"
)

// Service provides signal query use cases, delegating to the repository.
type Service struct {
	Repo repository.ItemScoreRepository
}

// List returns a filtered, paginated page of scored items plus the total
// row count matching filter.
func (s *Service) List(ctx context.Context, filter repository.SignalFilter) ([]*repository.SignalView, int64, error) {
	views, total, err := s.Repo.ListSignals(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list signals: %w", err)
	}
	return views, total, nil
}

// Get returns a single scored item by its RawItem id.
func (s *Service) Get(ctx context.Context, rawItemID int64) (*repository.SignalView, error) {
	view, err := s.Repo.GetSignal(ctx, rawItemID)
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return view, nil
}

// Top returns the highest-signal items fetched within the trailing window,
// bounded by limit.
func (s *Service) Top(ctx context.Context, window time.Duration, limit int) ([]*repository.SignalView, error) {
	views, err := s.Repo.TopSignals(ctx, time.Now().Add(-window), limit)
	if err != nil {
		return nil, fmt.Errorf("top signals: %w", err)
	}
	return views, nil
}

// CategoryStats returns per-category item counts and average signal score
// over the trailing window.
func (s *Service) CategoryStats(ctx context.Context, window time.Duration) ([]repository.CategoryStat, error) {
	stats, err := s.Repo.CategoryStats(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return stats, nil
}
