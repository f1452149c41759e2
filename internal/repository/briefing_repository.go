package repository

import (
	"context"
	"time"

	"newsbot/internal/domain/entity"
)

// BriefingRepository persists composed briefings and their ranked items.
type BriefingRepository interface {
	// ExistsForScopeSince reports whether a briefing already exists for
	// scope with created_at >= since, enforcing day-idempotency.
	ExistsForScopeSince(ctx context.Context, scope string, since time.Time) (bool, error)
	Create(ctx context.Context, briefing *entity.Briefing, items []*entity.BriefingItem) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Briefing, error)
	GetItems(ctx context.Context, briefingID int64) ([]*entity.BriefingItem, error)
	// LatestForScope returns the most recently created briefing for scope.
	LatestForScope(ctx context.Context, scope string) (*entity.Briefing, error)
	// ListForScope returns scope's briefings newest-first, bounded by limit.
	ListForScope(ctx context.Context, scope string, limit int) ([]*entity.Briefing, error)
}
