package repository

import (
	"context"

	"newsbot/internal/domain/entity"
)

// ExtractedContentRepository persists the single ExtractedContent row a
// RawItem gets when the extractor succeeds for it.
type ExtractedContentRepository interface {
	Create(ctx context.Context, content *entity.ExtractedContent) error
	GetByRawItemID(ctx context.Context, rawItemID int64) (*entity.ExtractedContent, error)
}
