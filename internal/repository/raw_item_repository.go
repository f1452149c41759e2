package repository

import (
	"context"
	"time"

	"newsbot/internal/domain/entity"
)

// RawItemFilters restricts FindCandidatesSince queries.
type RawItemFilters struct {
	SourceID *int64
	Since    *time.Time
}

// RawItemRepository persists normalized ingested items and advances them
// through the pipeline's status column.
type RawItemRepository interface {
	Get(ctx context.Context, id int64) (*entity.RawItem, error)
	// ExistsByExternalID checks the (source_id, external_id) uniqueness
	// invariant before an ingester inserts a new item.
	ExistsByExternalID(ctx context.Context, sourceID int64, externalID string) (bool, error)
	Create(ctx context.Context, item *entity.RawItem) error
	// ListByStatus returns items at exactly the given status, oldest first,
	// bounded by limit. Each pipeline stage polls this to find its input.
	ListByStatus(ctx context.Context, status entity.ItemStatus, limit int) ([]*entity.RawItem, error)
	// UpdateStatus advances an item's status. Callers are responsible for
	// only requesting forward transitions (entity.ItemStatus.CanAdvanceTo).
	UpdateStatus(ctx context.Context, id int64, status entity.ItemStatus) error
	// FindCandidatesSince returns items with fetched_at >= since used for
	// within-window dedup and scoring lookups.
	FindCandidatesSince(ctx context.Context, since time.Time, filters RawItemFilters) ([]*entity.RawItem, error)
	// FindByTitleWindow returns items from any source whose title matches
	// exactly, fetched within the given window, for title-based dedup.
	FindByTitleWindow(ctx context.Context, title string, since time.Time) ([]*entity.RawItem, error)
	// FindByURL returns the first item with an exact URL match, for
	// exact-URL dedup.
	FindByURL(ctx context.Context, url string) (*entity.RawItem, error)
}
