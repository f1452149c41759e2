package repository

import (
	"context"
	"time"

	"newsbot/internal/domain/entity"
)

// ItemScoreRepository appends scoring passes and reads the most recent one.
type ItemScoreRepository interface {
	Create(ctx context.Context, score *entity.ItemScore) error
	// GetLatest returns the most recently computed score for a RawItem, or
	// entity.ErrNotFound if the item has never been scored.
	GetLatest(ctx context.Context, rawItemID int64) (*entity.ItemScore, error)
	// ListCandidates returns the most-recent score for every item fetched
	// since the given time whose signal_score is >= minSignal, ordered
	// descending, for briefing candidate selection. A non-empty
	// categories list restricts candidates to sources in those categories
	// BEFORE the limit applies, so a topic-scoped user competes within
	// their topics rather than against the global top of the list.
	ListCandidates(ctx context.Context, since time.Time, minSignal float64, categories []string, limit int) ([]*entity.ItemScore, error)

	// ListSignals returns a page of scored items joined with their source
	// for display, newest-scored first, plus the total row count matching
	// filter for pagination metadata. Backs GET /signals.
	ListSignals(ctx context.Context, filter SignalFilter) ([]*SignalView, int64, error)
	// GetSignal returns a single scored item joined with its source, or
	// entity.ErrNotFound. Backs GET /signals/{id}.
	GetSignal(ctx context.Context, rawItemID int64) (*SignalView, error)
	// TopSignals returns the highest-signal items fetched since the given
	// time, ordered descending, bounded by limit. Backs GET /signals/top.
	TopSignals(ctx context.Context, since time.Time, limit int) ([]*SignalView, error)
	// CategoryStats returns per-category item count and average signal
	// score over items fetched since the given time. Backs GET
	// /signals/categories/stats.
	CategoryStats(ctx context.Context, since time.Time) ([]CategoryStat, error)
}

// SignalFilter restricts ListSignals. Zero values are unfiltered except
// Limit/Offset, which the caller always sets from pagination params.
type SignalFilter struct {
	MinScore   float64
	Category   string
	SourceType entity.SourceType
	Since      time.Time
	Limit      int
	Offset     int
}

// SignalView is a scored item joined with enough of its RawItem/Source
// for the read-only signals API to render without a second round-trip.
type SignalView struct {
	RawItemID   int64
	Title       string
	URL         string
	SourceID    int64
	SourceName  string
	SourceType  entity.SourceType
	Category    string
	PublishedAt *time.Time
	FetchedAt   time.Time
	Score       entity.ItemScore
}

// CategoryStat summarizes one category's scored items over a window.
type CategoryStat struct {
	Category string
	Count    int
	AvgScore float64
}
