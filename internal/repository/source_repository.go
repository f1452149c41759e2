package repository

import (
	"context"
	"time"

	"newsbot/internal/domain/entity"
)

// SourceRepository manages the catalog of registered sources.
type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListActive(ctx context.Context) ([]*entity.Source, error)
	ListActiveByType(ctx context.Context, sourceType entity.SourceType) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	Update(ctx context.Context, source *entity.Source) error
	Delete(ctx context.Context, id int64) error
	TouchCrawledAt(ctx context.Context, id int64, t time.Time) error
}
